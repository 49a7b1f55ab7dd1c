package lorawan

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// AES128Key represents a 128 bit AES key (AppKey, NwkSKey, AppSKey).
type AES128Key [16]byte

// String implements fmt.Stringer.
func (k AES128Key) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalText implements encoding.TextMarshaler.
func (k AES128Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AES128Key) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return fmt.Errorf("lorawan: exactly %d bytes are expected", len(k))
	}
	copy(k[:], b)
	return nil
}

// EUI64 represents an 8 byte EUI (AppEUI/JoinEUI or DevEUI), transmitted
// little-endian on the wire.
type EUI64 [8]byte

// String implements fmt.Stringer.
func (e EUI64) String() string {
	return hex.EncodeToString(e[:])
}

// MarshalBinary marshals the EUI in little-endian wire order.
func (e EUI64) MarshalBinary() ([]byte, error) {
	b := make([]byte, 8)
	for i := range e {
		b[i] = e[len(e)-1-i]
	}
	return b, nil
}

// UnmarshalBinary decodes the EUI from little-endian wire order.
func (e *EUI64) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return errors.New("lorawan: 8 bytes of data are expected")
	}
	for i, v := range data {
		e[len(e)-1-i] = v
	}
	return nil
}

// DevNonce is a device nonce used once per join attempt and persisted
// across power-cycles to prevent replay-key reuse.
type DevNonce uint16

// MarshalBinary marshals the DevNonce little-endian.
func (n DevNonce) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(n))
	return b, nil
}

// UnmarshalBinary decodes the DevNonce from little-endian wire order.
func (n *DevNonce) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return errors.New("lorawan: 2 bytes of data are expected")
	}
	*n = DevNonce(binary.LittleEndian.Uint16(data))
	return nil
}

// MIC represents the message integrity code.
type MIC [4]byte

// String implements fmt.Stringer.
func (m MIC) String() string {
	return hex.EncodeToString(m[:])
}
