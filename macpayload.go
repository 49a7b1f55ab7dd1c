package lorawan

import (
	"errors"
)

// AppNonce is the join-server nonce carried in a Join-Accept, used together
// with DevNonce to derive the session keys.
type AppNonce [3]byte

// MarshalBinary marshals the AppNonce little-endian.
func (n AppNonce) MarshalBinary() ([]byte, error) {
	return []byte{n[2], n[1], n[0]}, nil
}

// UnmarshalBinary decodes the AppNonce from little-endian wire order.
func (n *AppNonce) UnmarshalBinary(data []byte) error {
	if len(data) != 3 {
		return errors.New("lorawan: 3 bytes of data are expected")
	}
	n[0], n[1], n[2] = data[2], data[1], data[0]
	return nil
}

// DLSettings carries the RX1 data-rate offset and RX2 data-rate announced
// in a Join-Accept.
type DLSettings struct {
	RX1DROffset uint8 // 3 bits
	RX2DataRate uint8 // 4 bits
}

// MarshalBinary encodes DLSettings into a single byte.
func (s DLSettings) MarshalBinary() ([]byte, error) {
	if s.RX1DROffset > 7 {
		return nil, errors.New("lorawan: max value of RX1DROffset is 7")
	}
	if s.RX2DataRate > 15 {
		return nil, errors.New("lorawan: max value of RX2DataRate is 15")
	}
	return []byte{s.RX1DROffset<<4 | s.RX2DataRate}, nil
}

// UnmarshalBinary decodes DLSettings from a single byte.
func (s *DLSettings) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("lorawan: 1 byte of data is expected")
	}
	s.RX1DROffset = (data[0] >> 4) & 0x07
	s.RX2DataRate = data[0] & 0x0f
	return nil
}

// CFListType identifies which of the two CFList encodings a Join-Accept
// carries.
type CFListType byte

// Supported CFList types.
const (
	CFListChannel     CFListType = 0
	CFListChannelMask CFListType = 1
)

// CFList represents the optional list appended to a 33 byte Join-Accept.
// Its 15 byte Payload is region-specific: for CFListChannel it holds five
// little-endian 3 byte frequencies (in units of 100Hz); for CFListChannelMask
// it holds four 2 byte channel masks. Interpreting Payload is left to the
// band package so that this codec stays region-agnostic.
type CFList struct {
	Type    CFListType
	Payload [15]byte
}

// MarshalBinary encodes the CFList as 16 bytes: type then payload.
func (l CFList) MarshalBinary() ([]byte, error) {
	b := make([]byte, 16)
	b[0] = byte(l.Type)
	copy(b[1:], l.Payload[:])
	return b, nil
}

// UnmarshalBinary decodes the CFList from 16 bytes.
func (l *CFList) UnmarshalBinary(data []byte) error {
	if len(data) != 16 {
		return errors.New("lorawan: 16 bytes of data are expected")
	}
	l.Type = CFListType(data[0])
	copy(l.Payload[:], data[1:])
	return nil
}

// JoinRequestPayload represents the plaintext join-request MAC payload.
type JoinRequestPayload struct {
	JoinEUI  EUI64
	DevEUI   EUI64
	DevNonce DevNonce
}

// Clone returns a copy of the payload.
func (p JoinRequestPayload) Clone() Payload {
	return &p
}

// MarshalBinary encodes JoinEUI(8,LE) | DevEUI(8,LE) | DevNonce(2,LE).
func (p JoinRequestPayload) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 18)

	b, err := p.JoinEUI.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	b, err = p.DevEUI.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	b, err = p.DevNonce.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	return out, nil
}

// UnmarshalBinary decodes a JoinRequestPayload.
func (p *JoinRequestPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 18 {
		return errors.New("lorawan: 18 bytes of data are expected")
	}
	if err := p.JoinEUI.UnmarshalBinary(data[0:8]); err != nil {
		return err
	}
	if err := p.DevEUI.UnmarshalBinary(data[8:16]); err != nil {
		return err
	}
	return p.DevNonce.UnmarshalBinary(data[16:18])
}

// JoinAcceptPayload represents the plaintext join-accept MAC payload
// (after decryption, excluding the MIC which is carried on PHYPayload).
type JoinAcceptPayload struct {
	AppNonce   AppNonce
	NetID      NetID
	DevAddr    DevAddr
	DLSettings DLSettings
	RXDelay    uint8
	CFList     *CFList
}

// Clone returns a copy of the payload.
func (p JoinAcceptPayload) Clone() Payload {
	cp := p
	if p.CFList != nil {
		cl := *p.CFList
		cp.CFList = &cl
	}
	return &cp
}

// MarshalBinary encodes AppNonce(3) | NetID(3) | DevAddr(4) | DLSettings(1) | RXDelay(1) | [CFList(16)].
func (p JoinAcceptPayload) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 33)

	b, err := p.AppNonce.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	b, err = p.NetID.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	b, err = p.DevAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	b, err = p.DLSettings.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)

	out = append(out, p.RXDelay)

	if p.CFList != nil {
		b, err = p.CFList.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}

	return out, nil
}

// UnmarshalBinary decodes a JoinAcceptPayload from 12 or 28 bytes.
func (p *JoinAcceptPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 12 && len(data) != 28 {
		return errors.New("lorawan: 12 or 28 bytes of data are expected")
	}

	if err := p.AppNonce.UnmarshalBinary(data[0:3]); err != nil {
		return err
	}
	if err := p.NetID.UnmarshalBinary(data[3:6]); err != nil {
		return err
	}
	if err := p.DevAddr.UnmarshalBinary(data[6:10]); err != nil {
		return err
	}
	if err := p.DLSettings.UnmarshalBinary(data[10:11]); err != nil {
		return err
	}
	p.RXDelay = data[11]

	if len(data) == 28 {
		p.CFList = &CFList{}
		if err := p.CFList.UnmarshalBinary(data[12:28]); err != nil {
			return err
		}
	} else {
		p.CFList = nil
	}

	return nil
}

// MACPayload represents the MAC payload of a data frame.
type MACPayload struct {
	FHDR       FHDR
	FPort      *uint8
	FRMPayload Payload
}

// Clone returns a copy of the payload.
func (p MACPayload) Clone() Payload {
	cp := p
	cp.FHDR.FOpts = append([]byte{}, p.FHDR.FOpts...)
	if p.FPort != nil {
		fPort := *p.FPort
		cp.FPort = &fPort
	}
	if p.FRMPayload != nil {
		cp.FRMPayload = p.FRMPayload.Clone()
	}
	return &cp
}

// MarshalBinary encodes FHDR | [FPort | FRMPayload], enforcing the builder
// contract of section 4.B.
func (p MACPayload) MarshalBinary() ([]byte, error) {
	var frmBytes []byte
	if p.FRMPayload != nil {
		b, err := p.FRMPayload.MarshalBinary()
		if err != nil {
			return nil, err
		}
		frmBytes = b
	}

	if p.FPort != nil && *p.FPort == 0 && len(p.FHDR.FOpts) > 0 {
		return nil, errors.New("lorawan: FPort must not be 0 when FOpts are set")
	}
	if p.FPort == nil && len(frmBytes) > 0 {
		return nil, errors.New("lorawan: FPort must be set when FRMPayload is not empty")
	}

	out, err := p.FHDR.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if p.FPort != nil {
		out = append(out, *p.FPort)
		out = append(out, frmBytes...)
	}

	return out, nil
}

// UnmarshalBinary decodes a MACPayload. FRMPayload is left as a DataPayload
// of raw (still encrypted) bytes; callers decrypt and, for FPort=0, decode
// it into MAC commands afterwards.
func (p *MACPayload) UnmarshalBinary(data []byte) error {
	if err := p.FHDR.UnmarshalBinary(data); err != nil {
		return err
	}

	fhdrLen := 7 + len(p.FHDR.FOpts)
	if len(data) == fhdrLen {
		p.FPort = nil
		p.FRMPayload = nil
		return nil
	}
	if len(data) < fhdrLen+1 {
		return errors.New("lorawan: not enough remaining bytes for FPort")
	}

	fPort := data[fhdrLen]
	p.FPort = &fPort

	if len(data) > fhdrLen+1 {
		p.FRMPayload = &DataPayload{Bytes: append([]byte{}, data[fhdrLen+1:]...)}
	}

	return nil
}
