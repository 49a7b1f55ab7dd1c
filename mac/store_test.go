package mac

import (
	"testing"

	"github.com/stretchr/testify/require"

	lorawan "github.com/lucasgranberg/lorawan-device"
)

// memStore is an in-memory device.NonVolatileStore standing in for flash
// across the lifetime of a single test.
type memStore struct {
	page []byte
}

func (s *memStore) Save(page []byte) error {
	s.page = append([]byte(nil), page...)
	return nil
}

func (s *memStore) Load() ([]byte, error) {
	return s.page, nil
}

func TestSaveAndLoadStorableRoundTrip(t *testing.T) {
	var appKey lorawan.AES128Key
	for i := range appKey {
		appKey[i] = byte(i)
	}
	rx1Offset := uint8(2)
	s := Storable{RX1DataRateOffset: &rx1Offset, DevNonce: 7}

	store := &memStore{}
	require.NoError(t, SaveStorable(store, appKey, s))

	loaded, err := LoadStorable(store, appKey)
	require.NoError(t, err)
	require.Equal(t, uint16(7), loaded.DevNonce)
	require.NotNil(t, loaded.RX1DataRateOffset)
	require.Equal(t, uint8(2), *loaded.RX1DataRateOffset)
}

func TestLoadStorableWithWrongAppKeyIsEmptyNotError(t *testing.T) {
	var appKey lorawan.AES128Key
	for i := range appKey {
		appKey[i] = byte(i)
	}
	s := Storable{DevNonce: 42}

	store := &memStore{}
	require.NoError(t, SaveStorable(store, appKey, s))

	var wrongKey lorawan.AES128Key
	for i := range wrongKey {
		wrongKey[i] = byte(0xFF - i)
	}
	loaded, err := LoadStorable(store, wrongKey)
	require.NoError(t, err)
	require.Equal(t, Storable{}, loaded)
}

func TestAttachStoreRestoresDevNonce(t *testing.T) {
	e := testEngine(t)
	store := &memStore{}

	require.NoError(t, SaveStorable(store, e.Credentials.AppKey, Storable{DevNonce: 5}))
	require.NoError(t, e.AttachStore(store))
	require.Equal(t, lorawan.DevNonce(5), e.Credentials.DevNonce)
}

func TestCreateJoinRequestPersistsDevNonce(t *testing.T) {
	e := testEngine(t)
	store := &memStore{}
	require.NoError(t, e.AttachStore(store))

	_, err := e.CreateJoinRequest()
	require.NoError(t, err)
	require.Equal(t, lorawan.DevNonce(1), e.Credentials.DevNonce)

	loaded, err := LoadStorable(store, e.Credentials.AppKey)
	require.NoError(t, err)
	require.Equal(t, uint16(1), loaded.DevNonce)

	// A fresh engine attaching the same store picks up where this one
	// left off, so a power cycle never resends a spent DevNonce.
	restarted := testEngine(t)
	require.NoError(t, restarted.AttachStore(store))
	require.Equal(t, lorawan.DevNonce(1), restarted.Credentials.DevNonce)
}
