package lorawan

import (
	"encoding/hex"
	"fmt"
)

// NetID represents the 3 byte network identifier carried in a Join-Accept.
type NetID [3]byte

// NwkID returns the network id part of the NetID (the low 7 bits), kept by
// a device only for logging which network it joined.
func (n NetID) NwkID() byte {
	return n[2] & 0x7f
}

// String implements fmt.Stringer.
func (n NetID) String() string {
	return hex.EncodeToString(n[:])
}

// MarshalText implements encoding.TextMarshaler.
func (n NetID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NetID) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(n) {
		return fmt.Errorf("lorawan: exactly %d bytes are expected", len(n))
	}
	copy(n[:], b)
	return nil
}

// MarshalBinary marshals the NetID little-endian.
func (n NetID) MarshalBinary() ([]byte, error) {
	out := make([]byte, len(n))
	for i, v := range n {
		out[len(n)-1-i] = v
	}
	return out, nil
}

// UnmarshalBinary decodes the NetID from little-endian wire order.
func (n *NetID) UnmarshalBinary(data []byte) error {
	if len(data) != len(n) {
		return fmt.Errorf("lorawan: %d bytes of data are expected", len(n))
	}
	for i, v := range data {
		n[len(n)-1-i] = v
	}
	return nil
}
