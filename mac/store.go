package mac

import (
	"crypto/aes"
	"encoding/binary"

	keywrap "github.com/NickBall/go-aes-key-wrap"
	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/device"
	"github.com/pkg/errors"
)

// Storable is the subset of device state worth persisting across a
// power cycle: the pieces that are expensive to lose (DevNonce, which
// must never be reused with the same AppKey) and the caller-pinned
// configuration overrides. Session keys and frame counters are
// deliberately excluded — a power cycle always starts a fresh join
// rather than resuming a persisted session, avoiding a stale
// fcnt_down replay window. Grounded on original_source's
// mac::types::Storable.
type Storable struct {
	RX1DataRateOffset *uint8
	RXDelay           *uint8
	RX2DataRate       *uint8
	RX2Frequency      *uint32
	DevNonce          uint16
}

// storablePlainLen is the fixed-width plaintext encoding of Storable: a
// presence byte per optional field, its value (0 if absent), and the 2
// byte DevNonce, padded to a multiple of 8 bytes as RFC 3394 key wrap
// requires (minimum 2 64 bit blocks).
const storablePlainLen = 16

func marshalStorable(s Storable) []byte {
	b := make([]byte, storablePlainLen)
	putOptU8(b[0:2], s.RX1DataRateOffset)
	putOptU8(b[2:4], s.RXDelay)
	putOptU8(b[4:6], s.RX2DataRate)
	putOptU32(b[6:11], s.RX2Frequency)
	binary.LittleEndian.PutUint16(b[11:13], s.DevNonce)
	return b
}

func unmarshalStorable(b []byte) (Storable, error) {
	var s Storable
	if len(b) != storablePlainLen {
		return s, errors.Errorf("mac: storable page must be %d bytes, got %d", storablePlainLen, len(b))
	}
	s.RX1DataRateOffset = getOptU8(b[0:2])
	s.RXDelay = getOptU8(b[2:4])
	s.RX2DataRate = getOptU8(b[4:6])
	s.RX2Frequency = getOptU32(b[6:11])
	s.DevNonce = binary.LittleEndian.Uint16(b[11:13])
	return s, nil
}

func putOptU8(b []byte, v *uint8) {
	if v == nil {
		return
	}
	b[0] = 1
	b[1] = *v
}

func getOptU8(b []byte) *uint8 {
	if b[0] == 0 {
		return nil
	}
	v := b[1]
	return &v
}

func putOptU32(b []byte, v *uint32) {
	if v == nil {
		return
	}
	b[0] = 1
	binary.LittleEndian.PutUint32(b[1:5], *v)
}

func getOptU32(b []byte) *uint32 {
	if b[0] == 0 {
		return nil
	}
	v := binary.LittleEndian.Uint32(b[1:5])
	return &v
}

// SaveStorable key-wraps s under a KEK derived from appKey (so a flash
// dump reveals nothing the standard doesn't already put on the air) and
// hands the wrapped page to store. Grounded on the teacher's join-server
// key-wrap use (backend/joinserver/key_wrap.go), retargeted from
// wrapping a session key for transport to wrapping a storage page at
// rest.
func SaveStorable(store device.NonVolatileStore, appKey lorawan.AES128Key, s Storable) error {
	kek, err := lorawan.DeriveStorageKEK(appKey)
	if err != nil {
		return errors.Wrap(err, "mac: derive storage KEK")
	}
	block, err := aes.NewCipher(kek[:])
	if err != nil {
		return errors.Wrap(err, "mac: new cipher")
	}

	wrapped, err := keywrap.Wrap(block, marshalStorable(s))
	if err != nil {
		return errors.Wrap(err, "mac: key wrap")
	}

	if err := store.Save(wrapped); err != nil {
		return errors.Wrap(err, "mac: save")
	}
	return nil
}

// LoadStorable unwraps and decodes the page store holds. Per section 6
// of this module's spec, an unwrap failure — a foreign or corrupt page,
// or one written under a different AppKey — is treated exactly like an
// empty store: a zero-value Storable, not an error, since "no usable
// saved state" is a valid and expected condition on a fresh device.
func LoadStorable(store device.NonVolatileStore, appKey lorawan.AES128Key) (Storable, error) {
	page, err := store.Load()
	if err != nil {
		return Storable{}, errors.Wrap(err, "mac: load")
	}
	if len(page) == 0 {
		return Storable{}, nil
	}

	kek, err := lorawan.DeriveStorageKEK(appKey)
	if err != nil {
		return Storable{}, errors.Wrap(err, "mac: derive storage KEK")
	}
	block, err := aes.NewCipher(kek[:])
	if err != nil {
		return Storable{}, errors.Wrap(err, "mac: new cipher")
	}

	plain, err := keywrap.Unwrap(block, page)
	if err != nil {
		return Storable{}, nil
	}

	s, err := unmarshalStorable(plain)
	if err != nil {
		return Storable{}, nil
	}
	return s, nil
}
