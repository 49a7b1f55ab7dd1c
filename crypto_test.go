package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDeriveSessionKeys(t *testing.T) {
	Convey("Given an AppKey, AppNonce, NetID and DevNonce", t, func() {
		var appKey AES128Key
		for i := range appKey {
			appKey[i] = byte(i)
		}
		appNonce := AppNonce{1, 2, 3}
		netID := NetID{4, 5, 6}
		devNonce := DevNonce(7)

		Convey("DeriveNwkSKey and DeriveAppSKey produce distinct, deterministic keys", func() {
			nwkSKey, err := DeriveNwkSKey(appKey, appNonce, netID, devNonce)
			So(err, ShouldBeNil)

			appSKey, err := DeriveAppSKey(appKey, appNonce, netID, devNonce)
			So(err, ShouldBeNil)

			So(nwkSKey, ShouldNotEqual, appSKey)

			nwkSKey2, err := DeriveNwkSKey(appKey, appNonce, netID, devNonce)
			So(err, ShouldBeNil)
			So(nwkSKey2, ShouldEqual, nwkSKey)
		})

		Convey("A different DevNonce derives a different NwkSKey", func() {
			a, err := DeriveNwkSKey(appKey, appNonce, netID, devNonce)
			So(err, ShouldBeNil)
			b, err := DeriveNwkSKey(appKey, appNonce, netID, devNonce+1)
			So(err, ShouldBeNil)
			So(a, ShouldNotEqual, b)
		})
	})
}
