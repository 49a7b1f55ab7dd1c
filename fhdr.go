package lorawan

import (
	"encoding/binary"
	"errors"
)

// DevAddr represents the 32 bit device address assigned during activation.
type DevAddr [4]byte

// MarshalBinary marshals the DevAddr little-endian.
func (a DevAddr) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, binary.BigEndian.Uint32(a[:]))
	return b, nil
}

// UnmarshalBinary decodes the DevAddr from little-endian wire order.
func (a *DevAddr) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return errors.New("lorawan: 4 bytes of data are expected")
	}
	binary.BigEndian.PutUint32(a[:], binary.LittleEndian.Uint32(data))
	return nil
}

// FCtrl represents the frame control field.
type FCtrl byte

// NewFCtrl returns a new FCtrl. Note that for fOptsLen only the first
// four bits are used (and thus the max. allowed number is 15).
func NewFCtrl(adr, adrAckReq, ack, fPending bool, fOptsLen uint8) (FCtrl, error) {
	var fc FCtrl
	if fOptsLen > 15 {
		return fc, errors.New("lorawan: the max. fOptsLen is 15")
	}

	if adr {
		fc ^= 1 << 7
	}
	if adrAckReq {
		fc ^= 1 << 6
	}
	if ack {
		fc ^= 1 << 5
	}
	if fPending {
		fc ^= 1 << 4
	}

	return fc ^ FCtrl(fOptsLen), nil
}

// ADR returns if the adaptive data rate control bit is set.
func (c FCtrl) ADR() bool {
	return c&(1<<7) > 0
}

// ADRACKReq returns if the acknowledgment request bit is set.
func (c FCtrl) ADRACKReq() bool {
	return c&(1<<6) > 0
}

// ACK returns if the acknowledgment bit is set.
func (c FCtrl) ACK() bool {
	return c&(1<<5) > 0
}

// FPending returns if the network has more downlink data pending. Only
// meaningful on a downlink frame.
func (c FCtrl) FPending() bool {
	return c&(1<<4) > 0
}

// FOptsLen returns how many FOpts bytes the FHDR carries.
func (c FCtrl) FOptsLen() uint8 {
	return uint8(c) & 0x0f
}

// FHDR represents the frame header.
type FHDR struct {
	DevAddr DevAddr
	FCtrl   FCtrl
	FCnt    uint16
	FOpts   []byte // max. number of allowed bytes is 15
}

// MarshalBinary marshals the FHDR: DevAddr(4) | FCtrl(1) | FCnt(2) | FOpts.
func (h FHDR) MarshalBinary() ([]byte, error) {
	if len(h.FOpts) > 15 {
		return nil, errors.New("lorawan: max. number of FOpts bytes is 15")
	}
	if int(h.FCtrl.FOptsLen()) != len(h.FOpts) {
		return nil, errors.New("lorawan: FCtrl.FOptsLen does not match len(FOpts)")
	}

	b, err := h.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 7+len(h.FOpts))
	out = append(out, b...)
	out = append(out, byte(h.FCtrl))
	fcnt := make([]byte, 2)
	binary.LittleEndian.PutUint16(fcnt, h.FCnt)
	out = append(out, fcnt...)
	out = append(out, h.FOpts...)
	return out, nil
}

// UnmarshalBinary decodes the FHDR from wire bytes.
func (h *FHDR) UnmarshalBinary(data []byte) error {
	if len(data) < 7 {
		return errors.New("lorawan: at least 7 bytes of data are expected")
	}
	if err := h.DevAddr.UnmarshalBinary(data[0:4]); err != nil {
		return err
	}
	h.FCtrl = FCtrl(data[4])
	h.FCnt = binary.LittleEndian.Uint16(data[5:7])

	fOptsLen := int(h.FCtrl.FOptsLen())
	if len(data) < 7+fOptsLen {
		return errors.New("lorawan: FOpts does not match FOptsLen")
	}
	h.FOpts = make([]byte, fOptsLen)
	copy(h.FOpts, data[7:7+fOptsLen])
	return nil
}
