package lorawan

import (
	"crypto/aes"
	"encoding/binary"
	"errors"

	"github.com/jacobsa/crypto/cmac"
)

// EncryptFRMPayload encrypts (or decrypts, the cipher is symmetric) the
// application FRMPayload bytes using the Ai-block keystream construction
// of LoRaWAN 1.0.4 section 4.3.3.
func EncryptFRMPayload(key AES128Key, uplink bool, devAddr DevAddr, fCnt uint32, data []byte) ([]byte, error) {
	pLen := len(data)
	if pLen%16 != 0 {
		data = append(data, make([]byte, 16-(pLen%16))...)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	if block.BlockSize() != 16 {
		return nil, errors.New("lorawan: block size of 16 was expected")
	}

	s := make([]byte, 16)
	a := make([]byte, 16)
	a[0] = 0x01
	if !uplink {
		a[5] = 0x01
	}

	b, err := devAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(a[6:10], b)
	binary.LittleEndian.PutUint32(a[10:14], fCnt)

	for i := 0; i < len(data)/16; i++ {
		a[15] = byte(i + 1)
		block.Encrypt(s, a)
		for j := 0; j < len(s); j++ {
			data[i*16+j] ^= s[j]
		}
	}

	return data[0:pLen], nil
}

// EncryptFOpts encrypts (or decrypts) the FOpts mac-command bytes carried
// outside of FRMPayload, using a single Ai block (max 15 bytes of FOpts).
func EncryptFOpts(nwkSEncKey AES128Key, uplink bool, devAddr DevAddr, fCnt uint32, data []byte) ([]byte, error) {
	if len(data) > 15 {
		return nil, errors.New("lorawan: max size of FOpts is 15 bytes")
	}

	block, err := aes.NewCipher(nwkSEncKey[:])
	if err != nil {
		return nil, err
	}
	if block.BlockSize() != 16 {
		return nil, errors.New("lorawan: block size of 16 was expected")
	}

	a := make([]byte, 16)
	a[0] = 0x01
	a[4] = 0x01
	if !uplink {
		a[5] = 0x01
	}

	b, err := devAddr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(a[6:10], b)
	a[15] = 0x01
	binary.LittleEndian.PutUint32(a[10:14], fCnt)

	s := make([]byte, 16)
	block.Encrypt(s, a)

	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ s[i]
	}

	return out, nil
}

// computeUplinkDataMIC computes the MIC of an uplink data frame under
// NwkSKey, per LoRaWAN 1.0.4 section 4.4. fCnt32 is the full 32 bit
// frame-counter reconstructed from the session state, not the 16 bit
// wire value carried in FHDR.FCnt.
func computeUplinkDataMIC(nwkSKey AES128Key, mhdr MHDR, macPL MACPayload, fCnt32 uint32) (MIC, error) {
	var mic MIC

	micBytes, err := micInput(mhdr, macPL)
	if err != nil {
		return mic, err
	}

	b0 := make([]byte, 16)
	b0[0] = 0x49

	devAddr, err := macPL.FHDR.DevAddr.MarshalBinary()
	if err != nil {
		return mic, err
	}
	copy(b0[6:10], devAddr)
	binary.LittleEndian.PutUint32(b0[10:14], fCnt32)
	b0[15] = byte(len(micBytes))

	return cmacOf(nwkSKey, b0, micBytes)
}

// computeDownlinkDataMIC computes the MIC of a downlink data frame under
// NwkSKey, per LoRaWAN 1.0.4 section 4.4. fCnt32 is the full 32 bit
// frame-counter reconstructed from the session state, not the 16 bit
// wire value carried in FHDR.FCnt.
func computeDownlinkDataMIC(nwkSKey AES128Key, mhdr MHDR, macPL MACPayload, fCnt32 uint32) (MIC, error) {
	var mic MIC

	micBytes, err := micInput(mhdr, macPL)
	if err != nil {
		return mic, err
	}

	b0 := make([]byte, 16)
	b0[0] = 0x49
	b0[5] = 0x01

	devAddr, err := macPL.FHDR.DevAddr.MarshalBinary()
	if err != nil {
		return mic, err
	}
	copy(b0[6:10], devAddr)
	binary.LittleEndian.PutUint32(b0[10:14], fCnt32)
	b0[15] = byte(len(micBytes))

	return cmacOf(nwkSKey, b0, micBytes)
}

func micInput(mhdr MHDR, macPL MACPayload) ([]byte, error) {
	b, err := mhdr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	p, err := macPL.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(b, p...), nil
}

func cmacOf(key AES128Key, blocks ...[]byte) (MIC, error) {
	var mic MIC

	hash, err := cmac.New(key[:])
	if err != nil {
		return mic, err
	}
	for _, b := range blocks {
		if _, err := hash.Write(b); err != nil {
			return mic, err
		}
	}

	sum := hash.Sum(nil)
	if len(sum) < 4 {
		return mic, errors.New("lorawan: cmac returned less than 4 bytes")
	}
	copy(mic[:], sum[0:4])
	return mic, nil
}

// computeJoinRequestMIC computes the MIC of a join-request frame under
// the device's AppKey (root key, pre-1.1 terminology).
func computeJoinRequestMIC(appKey AES128Key, mhdr MHDR, jr JoinRequestPayload) (MIC, error) {
	b, err := mhdr.MarshalBinary()
	if err != nil {
		return MIC{}, err
	}
	p, err := jr.MarshalBinary()
	if err != nil {
		return MIC{}, err
	}
	return cmacOf(appKey, append(b, p...))
}

// computeJoinAcceptMIC computes the MIC of a join-accept frame under the
// device's AppKey. data is the plaintext MHDR||JoinAcceptPayload bytes.
func computeJoinAcceptMIC(appKey AES128Key, data []byte) (MIC, error) {
	return cmacOf(appKey, data)
}

// DeriveNwkSKey derives the network session key from a Join-Accept, per
// LoRaWAN 1.0.4 section 6.2.5: AES128_encrypt(AppKey, 0x01 | AppNonce |
// NetID | DevNonce | pad16).
func DeriveNwkSKey(appKey AES128Key, appNonce AppNonce, netID NetID, devNonce DevNonce) (AES128Key, error) {
	return deriveSessionKey(appKey, 0x01, appNonce, netID, devNonce)
}

// DeriveAppSKey derives the application session key from a Join-Accept,
// per LoRaWAN 1.0.4 section 6.2.5: AES128_encrypt(AppKey, 0x02 | AppNonce
// | NetID | DevNonce | pad16).
func DeriveAppSKey(appKey AES128Key, appNonce AppNonce, netID NetID, devNonce DevNonce) (AES128Key, error) {
	return deriveSessionKey(appKey, 0x02, appNonce, netID, devNonce)
}

// DeriveStorageKEK derives a key-encryption-key for wrapping the
// non-volatile Storable page under the device's AppKey, so that flash
// contents are not readable without it. Not part of the LoRaWAN
// standard; this module's own AES128_encrypt(AppKey, 0xFE | pad16)
// construction, grounded on the same single-block key-derivation idiom
// DeriveNwkSKey/DeriveAppSKey use, with a type byte (0xFE) outside the
// 0x01/0x02 range the standard reserves for session keys.
func DeriveStorageKEK(appKey AES128Key) (AES128Key, error) {
	var key AES128Key

	block, err := aes.NewCipher(appKey[:])
	if err != nil {
		return key, err
	}

	b := make([]byte, 16)
	b[0] = 0xFE

	out := make([]byte, 16)
	block.Encrypt(out, b)
	copy(key[:], out)
	return key, nil
}

func deriveSessionKey(appKey AES128Key, typeByte byte, appNonce AppNonce, netID NetID, devNonce DevNonce) (AES128Key, error) {
	var key AES128Key

	block, err := aes.NewCipher(appKey[:])
	if err != nil {
		return key, err
	}

	b := make([]byte, 16)
	b[0] = typeByte

	an, err := appNonce.MarshalBinary()
	if err != nil {
		return key, err
	}
	copy(b[1:4], an)

	nid, err := netID.MarshalBinary()
	if err != nil {
		return key, err
	}
	copy(b[4:7], nid)

	dn, err := devNonce.MarshalBinary()
	if err != nil {
		return key, err
	}
	copy(b[7:9], dn)

	out := make([]byte, 16)
	block.Encrypt(out, b)
	copy(key[:], out)
	return key, nil
}
