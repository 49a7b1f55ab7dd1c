package lorawan

import (
	"crypto/aes"
	"encoding/base64"
	"errors"
	"fmt"
)

// PHYPayload represents the physical payload: MHDR, the MAC payload
// (Join-Request, Join-Accept or a data frame), and the MIC.
type PHYPayload struct {
	MHDR       MHDR
	MACPayload Payload
	MIC        MIC
}

// isUplink reports whether p carries an uplink frame. Proprietary frames
// carry no direction of their own; this module treats them as downlink
// for the purpose of picking an Ai-block direction bit, since nothing in
// this engine produces or consumes Proprietary MType frames.
func (p PHYPayload) isUplink() bool {
	switch p.MHDR.MType {
	case MTypeJoinRequest, MTypeUnconfirmedDataUp, MTypeConfirmedDataUp:
		return true
	default:
		return false
	}
}

// MarshalBinary marshals the object in binary form.
func (p PHYPayload) MarshalBinary() ([]byte, error) {
	if p.MACPayload == nil {
		return nil, errors.New("lorawan: MACPayload must not be nil")
	}

	b, err := p.MHDR.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := append([]byte{}, b...)

	b, err = p.MACPayload.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, b...)
	out = append(out, p.MIC[:]...)

	return out, nil
}

// UnmarshalBinary decodes the object from binary form. The MACPayload is
// left in its wire-level shape: a data frame's FRMPayload is still
// encrypted bytes and a Join-Accept's body is still encrypted bytes (as a
// DataPayload) until the caller calls the matching Decrypt method.
func (p *PHYPayload) UnmarshalBinary(data []byte) error {
	if len(data) < 5 {
		return errors.New("lorawan: at least 5 bytes are needed to decode a PHYPayload")
	}

	if err := p.MHDR.UnmarshalBinary(data[0:1]); err != nil {
		return err
	}

	switch p.MHDR.MType {
	case MTypeJoinRequest:
		p.MACPayload = &JoinRequestPayload{}
	case MTypeJoinAccept:
		p.MACPayload = &DataPayload{}
	case MTypeProprietary:
		p.MACPayload = &DataPayload{}
	case MTypeUnconfirmedDataUp, MTypeUnconfirmedDataDown, MTypeConfirmedDataUp, MTypeConfirmedDataDown:
		p.MACPayload = &MACPayload{}
	default:
		return fmt.Errorf("lorawan: unsupported MType %s", p.MHDR.MType)
	}

	body := data[1 : len(data)-4]
	if err := p.MACPayload.UnmarshalBinary(body); err != nil {
		return err
	}

	copy(p.MIC[:], data[len(data)-4:])
	return nil
}

// MarshalText encodes the PHYPayload into base64, as used by e.g. MQTT
// bridges that carry frames as text.
func (p PHYPayload) MarshalText() ([]byte, error) {
	b, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return []byte(base64.StdEncoding.EncodeToString(b)), nil
}

// UnmarshalText decodes the PHYPayload from base64.
func (p *PHYPayload) UnmarshalText(text []byte) error {
	b, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return err
	}
	return p.UnmarshalBinary(b)
}

// SetUplinkDataMIC calculates and sets the MIC of an uplink data frame.
// fCnt32 is the full 32 bit uplink frame-counter tracked by the session,
// not the 16 bit value carried in FHDR.FCnt.
func (p *PHYPayload) SetUplinkDataMIC(nwkSKey AES128Key, fCnt32 uint32) error {
	macPL, ok := p.MACPayload.(*MACPayload)
	if !ok {
		return errors.New("lorawan: MACPayload must be of type *MACPayload")
	}
	mic, err := computeUplinkDataMIC(nwkSKey, p.MHDR, *macPL, fCnt32)
	if err != nil {
		return err
	}
	p.MIC = mic
	return nil
}

// ValidateUplinkDataMIC validates the MIC of an uplink data frame.
func (p PHYPayload) ValidateUplinkDataMIC(nwkSKey AES128Key, fCnt32 uint32) (bool, error) {
	macPL, ok := p.MACPayload.(*MACPayload)
	if !ok {
		return false, errors.New("lorawan: MACPayload must be of type *MACPayload")
	}
	mic, err := computeUplinkDataMIC(nwkSKey, p.MHDR, *macPL, fCnt32)
	if err != nil {
		return false, err
	}
	return p.MIC == mic, nil
}

// SetDownlinkDataMIC calculates and sets the MIC of a downlink data frame.
// fCnt32 is the full 32 bit downlink frame-counter tracked by the session.
func (p *PHYPayload) SetDownlinkDataMIC(nwkSKey AES128Key, fCnt32 uint32) error {
	macPL, ok := p.MACPayload.(*MACPayload)
	if !ok {
		return errors.New("lorawan: MACPayload must be of type *MACPayload")
	}
	mic, err := computeDownlinkDataMIC(nwkSKey, p.MHDR, *macPL, fCnt32)
	if err != nil {
		return err
	}
	p.MIC = mic
	return nil
}

// ValidateDownlinkDataMIC validates the MIC of a downlink data frame.
func (p PHYPayload) ValidateDownlinkDataMIC(nwkSKey AES128Key, fCnt32 uint32) (bool, error) {
	macPL, ok := p.MACPayload.(*MACPayload)
	if !ok {
		return false, errors.New("lorawan: MACPayload must be of type *MACPayload")
	}
	mic, err := computeDownlinkDataMIC(nwkSKey, p.MHDR, *macPL, fCnt32)
	if err != nil {
		return false, err
	}
	return p.MIC == mic, nil
}

// SetUplinkJoinMIC calculates and sets the MIC of a join-request.
func (p *PHYPayload) SetUplinkJoinMIC(appKey AES128Key) error {
	jr, ok := p.MACPayload.(*JoinRequestPayload)
	if !ok {
		return errors.New("lorawan: MACPayload must be of type *JoinRequestPayload")
	}
	mic, err := computeJoinRequestMIC(appKey, p.MHDR, *jr)
	if err != nil {
		return err
	}
	p.MIC = mic
	return nil
}

// ValidateUplinkJoinMIC validates the MIC of a join-request.
func (p PHYPayload) ValidateUplinkJoinMIC(appKey AES128Key) (bool, error) {
	jr, ok := p.MACPayload.(*JoinRequestPayload)
	if !ok {
		return false, errors.New("lorawan: MACPayload must be of type *JoinRequestPayload")
	}
	mic, err := computeJoinRequestMIC(appKey, p.MHDR, *jr)
	if err != nil {
		return false, err
	}
	return p.MIC == mic, nil
}

// SetDownlinkJoinMIC calculates and sets the MIC of a join-accept. The
// MACPayload must already hold the plaintext *JoinAcceptPayload (call this
// before EncryptJoinAcceptPayload, since the MIC is itself encrypted).
func (p *PHYPayload) SetDownlinkJoinMIC(appKey AES128Key) error {
	if _, ok := p.MACPayload.(*JoinAcceptPayload); !ok {
		return errors.New("lorawan: MACPayload must be of type *JoinAcceptPayload")
	}

	mhdrB, err := p.MHDR.MarshalBinary()
	if err != nil {
		return err
	}
	plB, err := p.MACPayload.MarshalBinary()
	if err != nil {
		return err
	}

	mic, err := computeJoinAcceptMIC(appKey, append(mhdrB, plB...))
	if err != nil {
		return err
	}
	p.MIC = mic
	return nil
}

// ValidateDownlinkJoinMIC validates the MIC of a plaintext join-accept
// (i.e. after DecryptJoinAcceptPayload has been called).
func (p PHYPayload) ValidateDownlinkJoinMIC(appKey AES128Key) (bool, error) {
	if _, ok := p.MACPayload.(*JoinAcceptPayload); !ok {
		return false, errors.New("lorawan: MACPayload must be of type *JoinAcceptPayload")
	}

	mhdrB, err := p.MHDR.MarshalBinary()
	if err != nil {
		return false, err
	}
	plB, err := p.MACPayload.MarshalBinary()
	if err != nil {
		return false, err
	}

	mic, err := computeJoinAcceptMIC(appKey, append(mhdrB, plB...))
	if err != nil {
		return false, err
	}
	return p.MIC == mic, nil
}

// EncryptJoinAcceptPayload encrypts a plaintext *JoinAcceptPayload in
// place, replacing it with the wire-level *DataPayload. Must be called
// after SetDownlinkJoinMIC, since the MIC itself is part of the
// encrypted block.
func (p *PHYPayload) EncryptJoinAcceptPayload(key AES128Key) error {
	if _, ok := p.MACPayload.(*JoinAcceptPayload); !ok {
		return errors.New("lorawan: MACPayload must be of type *JoinAcceptPayload")
	}

	pt, err := p.MACPayload.MarshalBinary()
	if err != nil {
		return err
	}
	pt = append(pt, p.MIC[:]...)
	if len(pt)%16 != 0 {
		return errors.New("lorawan: plaintext must be a multiple of 16 bytes")
	}

	ct, err := aesInvertBlocks(key, pt, false)
	if err != nil {
		return err
	}

	p.MACPayload = &DataPayload{Bytes: ct[0 : len(ct)-4]}
	copy(p.MIC[:], ct[len(ct)-4:])
	return nil
}

// DecryptJoinAcceptPayload decrypts a wire-level join-accept *DataPayload
// in place, replacing it with the plaintext *JoinAcceptPayload. Call this
// before ValidateDownlinkJoinMIC.
func (p *PHYPayload) DecryptJoinAcceptPayload(key AES128Key) error {
	dp, ok := p.MACPayload.(*DataPayload)
	if !ok {
		return errors.New("lorawan: MACPayload must be of type *DataPayload")
	}

	ct := append(append([]byte{}, dp.Bytes...), p.MIC[:]...)
	if len(ct)%16 != 0 {
		return errors.New("lorawan: ciphertext must be a multiple of 16 bytes")
	}

	pt, err := aesInvertBlocks(key, ct, true)
	if err != nil {
		return err
	}

	jp := &JoinAcceptPayload{}
	if err := jp.UnmarshalBinary(pt[0 : len(pt)-4]); err != nil {
		return err
	}
	p.MACPayload = jp
	copy(p.MIC[:], pt[len(pt)-4:])
	return nil
}

// aesInvertBlocks runs the opposite AES direction block-by-block: the
// Join-Accept "encrypt as decrypt" trick of section 6.2.5, so that an
// end-device (which only ever encrypts data) can decrypt a Join-Accept it
// receives with a single Encrypt call, and the join-server can produce one
// with a single Decrypt call. encrypt selects the device side (AES
// Encrypt); otherwise the join-server side (AES Decrypt) is applied.
func aesInvertBlocks(key AES128Key, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	if block.BlockSize() != 16 {
		return nil, errors.New("lorawan: block size of 16 bytes is expected")
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data)/16; i++ {
		offset := i * 16
		if encrypt {
			block.Encrypt(out[offset:offset+16], data[offset:offset+16])
		} else {
			block.Decrypt(out[offset:offset+16], data[offset:offset+16])
		}
	}
	return out, nil
}

// EncryptFRMPayload encrypts (or decrypts, the cipher is symmetric) the
// FRMPayload of a data frame in place. fCnt32 is the full 32 bit
// frame-counter for the frame's direction.
func (p *PHYPayload) EncryptFRMPayload(key AES128Key, fCnt32 uint32) error {
	macPL, ok := p.MACPayload.(*MACPayload)
	if !ok {
		return errors.New("lorawan: MACPayload must be of type *MACPayload")
	}
	if macPL.FRMPayload == nil {
		return nil
	}

	pt, err := macPL.FRMPayload.MarshalBinary()
	if err != nil {
		return err
	}

	ct, err := EncryptFRMPayload(key, p.isUplink(), macPL.FHDR.DevAddr, fCnt32, pt)
	if err != nil {
		return err
	}

	macPL.FRMPayload = &DataPayload{Bytes: ct}
	return nil
}

// DecryptFRMPayload decrypts the FRMPayload of a data frame in place. It
// is the same transform as EncryptFRMPayload; the method pair exists for
// readability at call sites.
func (p *PHYPayload) DecryptFRMPayload(key AES128Key, fCnt32 uint32) error {
	return p.EncryptFRMPayload(key, fCnt32)
}

// EncryptFOpts encrypts (or decrypts) the FOpts field of a data frame in
// place. fCnt32 is the full 32 bit frame-counter for the frame's
// direction.
func (p *PHYPayload) EncryptFOpts(nwkSEncKey AES128Key, fCnt32 uint32) error {
	macPL, ok := p.MACPayload.(*MACPayload)
	if !ok {
		return errors.New("lorawan: MACPayload must be of type *MACPayload")
	}
	if len(macPL.FHDR.FOpts) == 0 {
		return nil
	}

	out, err := EncryptFOpts(nwkSEncKey, p.isUplink(), macPL.FHDR.DevAddr, fCnt32, macPL.FHDR.FOpts)
	if err != nil {
		return err
	}
	macPL.FHDR.FOpts = out
	return nil
}

// DecryptFOpts decrypts the FOpts field of a data frame in place. It is
// the same transform as EncryptFOpts.
func (p *PHYPayload) DecryptFOpts(nwkSEncKey AES128Key, fCnt32 uint32) error {
	return p.EncryptFOpts(nwkSEncKey, fCnt32)
}
