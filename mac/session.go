package mac

import lorawan "github.com/lucasgranberg/lorawan-device"

// maxFCntUp is the uplink frame counter limit beyond which a session is
// considered expired and a fresh join is required, per
// original_source's Session::is_expired.
const maxFCntUp = 0xFFFF

// Session holds the key material and frame-counter state established by
// a join, persisted only in memory — a power cycle always starts a
// fresh join, matching spec.md's Non-goal on non-volatile session
// persistence. Grounded on original_source's mac::types::Session.
type Session struct {
	NwkSKey   lorawan.AES128Key
	AppSKey   lorawan.AES128Key
	DevAddr   lorawan.DevAddr
	FCntUp    uint32
	FCntDown  uint32
	ADRAckCnt uint8
}

// NewSession builds a Session directly from session keys and a device
// address, for callers that already hold derived key material.
func NewSession(nwkSKey, appSKey lorawan.AES128Key, devAddr lorawan.DevAddr) *Session {
	return &Session{NwkSKey: nwkSKey, AppSKey: appSKey, DevAddr: devAddr}
}

// DeriveSession builds a fresh Session from a decrypted, MIC-validated
// Join-Accept and the Credentials used for the join that produced it.
// Grounded on original_source's Session::derive_new.
func DeriveSession(ja *lorawan.JoinAcceptPayload, creds *Credentials) (*Session, error) {
	nwkSKey, err := lorawan.DeriveNwkSKey(creds.AppKey, ja.AppNonce, ja.NetID, creds.DevNonce)
	if err != nil {
		return nil, err
	}
	appSKey, err := lorawan.DeriveAppSKey(creds.AppKey, ja.AppNonce, ja.NetID, creds.DevNonce)
	if err != nil {
		return nil, err
	}
	return NewSession(nwkSKey, appSKey, ja.DevAddr), nil
}

// FCntUpIncrement advances the uplink frame counter, deliberately
// delayed by Engine until a transmission attempt is in flight rather
// than called eagerly on every PrepareUplink, so a failed TX never
// burns a counter value.
func (s *Session) FCntUpIncrement() {
	s.FCntUp++
}

// IsExpired reports whether the uplink counter has reached maxFCntUp
// (0xFFFF, the top of the 16 bit wire value), the limit at which this
// module forces a re-join even though FCntUp itself is a 32 bit field.
func (s *Session) IsExpired() bool {
	return s.FCntUp >= maxFCntUp
}

// ADRAckCntClear resets the ADR-ACK bookkeeping counter, called whenever
// any downlink is received (section 5, supplemented feature).
func (s *Session) ADRAckCntClear() {
	s.ADRAckCnt = 0
}

// ADRAckCntIncrement advances the ADR-ACK counter, called on every
// uplink that receives no downlink in return, saturating at 255 rather
// than wrapping.
func (s *Session) ADRAckCntIncrement() {
	if s.ADRAckCnt < 0xFF {
		s.ADRAckCnt++
	}
}
