/*

Package mac implements the LoRaWAN 1.0.4 MAC engine: the session,
credentials and configuration state a device carries across a join and
its data frames, and the engine that builds/parses frames against that
state. Grounded on original_source's mac::types module (Credentials,
Session, Configuration, Storable) and mac_1_0_4::Mac, adapted from Rust's
borrow-checked `&'a mut` state handed into a short-lived Mac value to a
long-lived Go Engine that owns its state outright.

*/
package mac

import lorawan "github.com/lucasgranberg/lorawan-device"

// Credentials identifies a device to a network's join server and tracks
// the nonce spent on each join attempt. Grounded on
// original_source/src/mac/types.rs's Credentials.
type Credentials struct {
	JoinEUI  lorawan.EUI64
	DevEUI   lorawan.EUI64
	AppKey   lorawan.AES128Key
	DevNonce lorawan.DevNonce
}

// NewCredentials returns Credentials with a DevNonce of zero, ready for
// a first join attempt.
func NewCredentials(joinEUI, devEUI lorawan.EUI64, appKey lorawan.AES128Key) *Credentials {
	return &Credentials{JoinEUI: joinEUI, DevEUI: devEUI, AppKey: appKey}
}

// IncrDevNonce advances the nonce before each join attempt is built,
// whether or not the previous one succeeded, so that a retried join never
// reuses a value a join server may have already seen.
func (c *Credentials) IncrDevNonce() {
	c.DevNonce++
}
