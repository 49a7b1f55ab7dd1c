package lorawan

import "fmt"

// MType represents the message type carried in the top 3 bits of MHDR.
type MType byte

// Supported message types (MType).
const (
	MTypeJoinRequest         MType = 0
	MTypeJoinAccept          MType = 1
	MTypeUnconfirmedDataUp   MType = 2
	MTypeUnconfirmedDataDown MType = 3
	MTypeConfirmedDataUp     MType = 4
	MTypeConfirmedDataDown   MType = 5
	MTypeRFU                 MType = 6
	MTypeProprietary         MType = 7
)

func (m MType) String() string {
	switch m {
	case MTypeJoinRequest:
		return "JoinRequest"
	case MTypeJoinAccept:
		return "JoinAccept"
	case MTypeUnconfirmedDataUp:
		return "UnconfirmedDataUp"
	case MTypeUnconfirmedDataDown:
		return "UnconfirmedDataDown"
	case MTypeConfirmedDataUp:
		return "ConfirmedDataUp"
	case MTypeConfirmedDataDown:
		return "ConfirmedDataDown"
	case MTypeProprietary:
		return "Proprietary"
	default:
		return "RFU"
	}
}

// Major defines the major version of the LoRaWAN frame.
type Major byte

// Supported major versions.
const (
	LoRaWANR1 Major = 0
)

// MHDR represents the MAC header field.
type MHDR struct {
	MType MType
	Major Major
}

// MarshalBinary encodes the MHDR as a single byte: MType in bits 7-5,
// Major in bits 1-0.
func (h MHDR) MarshalBinary() ([]byte, error) {
	if h.MType > 7 {
		return nil, fmt.Errorf("lorawan: invalid MType %d", h.MType)
	}
	if h.Major > 3 {
		return nil, fmt.Errorf("lorawan: invalid Major %d", h.Major)
	}
	b := byte(h.MType)<<5 | byte(h.Major)
	return []byte{b}, nil
}

// UnmarshalBinary decodes the MHDR from a single byte.
func (h *MHDR) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("lorawan: 1 byte of data is expected")
	}
	h.MType = MType(data[0] >> 5)
	h.Major = Major(data[0] & 0x03)
	if h.Major != LoRaWANR1 {
		return &Error{Kind: KindUnsupportedMajorVersion, Msg: fmt.Sprintf("major %d", h.Major)}
	}
	return nil
}
