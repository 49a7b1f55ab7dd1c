package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPHYPayloadDataUplink(t *testing.T) {
	Convey("Given an uplink data PHYPayload with a FRMPayload and FOpts", t, func() {
		nwkSKey := AES128Key{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
		appSKey := AES128Key{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}
		fPort := uint8(10)

		phy := PHYPayload{
			MHDR: MHDR{MType: MTypeUnconfirmedDataUp, Major: LoRaWANR1},
			MACPayload: &MACPayload{
				FHDR: FHDR{
					DevAddr: DevAddr{1, 2, 3, 4},
					FCtrl:   FCtrl(0),
					FCnt:    7,
				},
				FPort:      &fPort,
				FRMPayload: &DataPayload{Bytes: []byte("hello")},
			},
		}

		Convey("Then setting and validating the MIC succeeds", func() {
			So(phy.SetUplinkDataMIC(nwkSKey, 7), ShouldBeNil)
			ok, err := phy.ValidateUplinkDataMIC(nwkSKey, 7)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			Convey("Then validating against a different FCnt fails", func() {
				ok, err := phy.ValidateUplinkDataMIC(nwkSKey, 8)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Then encrypting then decrypting the FRMPayload recovers the plaintext", func() {
			So(phy.EncryptFRMPayload(appSKey, 7), ShouldBeNil)

			macPL := phy.MACPayload.(*MACPayload)
			ct, ok := macPL.FRMPayload.(*DataPayload)
			So(ok, ShouldBeTrue)
			So(ct.Bytes, ShouldNotResemble, []byte("hello"))

			So(phy.DecryptFRMPayload(appSKey, 7), ShouldBeNil)
			pt, ok := macPL.FRMPayload.(*DataPayload)
			So(ok, ShouldBeTrue)
			So(pt.Bytes, ShouldResemble, []byte("hello"))
		})

		Convey("Then MarshalBinary / UnmarshalBinary round-trip after encryption", func() {
			So(phy.EncryptFRMPayload(appSKey, 7), ShouldBeNil)
			So(phy.SetUplinkDataMIC(nwkSKey, 7), ShouldBeNil)

			b, err := phy.MarshalBinary()
			So(err, ShouldBeNil)

			var out PHYPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out.MHDR, ShouldResemble, phy.MHDR)
			So(out.MIC, ShouldResemble, phy.MIC)

			outMACPL, ok := out.MACPayload.(*MACPayload)
			So(ok, ShouldBeTrue)
			So(outMACPL.FHDR.DevAddr, ShouldResemble, DevAddr{1, 2, 3, 4})
			So(*outMACPL.FPort, ShouldEqual, uint8(10))
		})
	})
}

func TestPHYPayloadFOptsEncryption(t *testing.T) {
	Convey("Given a downlink data PHYPayload with FOpts set", t, func() {
		nwkSEncKey := AES128Key{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3}
		fOpts := []byte{byte(0x02), byte(0x06)} // LinkCheckReq, DevStatusReq raw bytes

		phy := PHYPayload{
			MHDR: MHDR{MType: MTypeUnconfirmedDataDown, Major: LoRaWANR1},
			MACPayload: &MACPayload{
				FHDR: FHDR{
					DevAddr: DevAddr{1, 2, 3, 4},
					FCtrl:   FCtrl(2), // FOptsLen=2
					FCnt:    3,
					FOpts:   append([]byte{}, fOpts...),
				},
			},
		}

		Convey("Then encrypting then decrypting FOpts recovers the original bytes", func() {
			So(phy.EncryptFOpts(nwkSEncKey, 3), ShouldBeNil)

			macPL := phy.MACPayload.(*MACPayload)
			So(macPL.FHDR.FOpts, ShouldNotResemble, fOpts)

			So(phy.DecryptFOpts(nwkSEncKey, 3), ShouldBeNil)
			So(macPL.FHDR.FOpts, ShouldResemble, fOpts)
		})
	})
}

func TestPHYPayloadJoinRequest(t *testing.T) {
	Convey("Given a join-request PHYPayload", t, func() {
		appKey := AES128Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

		phy := PHYPayload{
			MHDR: MHDR{MType: MTypeJoinRequest, Major: LoRaWANR1},
			MACPayload: &JoinRequestPayload{
				JoinEUI:  EUI64{1, 1, 1, 1, 1, 1, 1, 1},
				DevEUI:   EUI64{2, 2, 2, 2, 2, 2, 2, 2},
				DevNonce: 3,
			},
		}

		Convey("Then SetUplinkJoinMIC / ValidateUplinkJoinMIC round-trip", func() {
			So(phy.SetUplinkJoinMIC(appKey), ShouldBeNil)
			ok, err := phy.ValidateUplinkJoinMIC(appKey)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			So(phy.SetUplinkJoinMIC(appKey), ShouldBeNil)
			b, err := phy.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 23) // 1 MHDR + 18 JoinRequestPayload + 4 MIC

			var out PHYPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out.MHDR.MType, ShouldEqual, MTypeJoinRequest)
			So(out.MIC, ShouldEqual, phy.MIC)

			jr, ok := out.MACPayload.(*JoinRequestPayload)
			So(ok, ShouldBeTrue)
			So(jr.DevNonce, ShouldEqual, DevNonce(3))
		})
	})
}

func TestPHYPayloadJoinAccept(t *testing.T) {
	Convey("Given a join-accept PHYPayload with a plaintext JoinAcceptPayload", t, func() {
		appKey := AES128Key{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

		phy := PHYPayload{
			MHDR: MHDR{MType: MTypeJoinAccept, Major: LoRaWANR1},
			MACPayload: &JoinAcceptPayload{
				AppNonce:   AppNonce{1, 1, 1},
				NetID:      NetID{2, 2, 2},
				DevAddr:    DevAddr{1, 2, 3, 4},
				DLSettings: DLSettings{RX1DROffset: 0, RX2DataRate: 0},
				RXDelay:    0,
			},
		}

		Convey("Then SetDownlinkJoinMIC then Encrypt/DecryptJoinAcceptPayload round-trips", func() {
			So(phy.SetDownlinkJoinMIC(appKey), ShouldBeNil)
			mic := phy.MIC

			So(phy.EncryptJoinAcceptPayload(appKey), ShouldBeNil)

			// after encryption, the MACPayload is wire-level ciphertext
			_, ok := phy.MACPayload.(*DataPayload)
			So(ok, ShouldBeTrue)

			b, err := phy.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 17) // MHDR(1) + encrypted JoinAcceptPayload(12) + MIC(4)

			var out PHYPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)

			So(out.DecryptJoinAcceptPayload(appKey), ShouldBeNil)
			jaPL, ok := out.MACPayload.(*JoinAcceptPayload)
			So(ok, ShouldBeTrue)
			So(jaPL.AppNonce, ShouldEqual, AppNonce{1, 1, 1})
			So(jaPL.NetID, ShouldEqual, NetID{2, 2, 2})
			So(jaPL.DevAddr, ShouldEqual, DevAddr{1, 2, 3, 4})
			So(out.MIC, ShouldEqual, mic)

			ok2, err := out.ValidateDownlinkJoinMIC(appKey)
			So(err, ShouldBeNil)
			So(ok2, ShouldBeTrue)
		})
	})
}

func TestPHYPayloadProprietary(t *testing.T) {
	Convey("Given a Proprietary PHYPayload", t, func() {
		phy := PHYPayload{
			MHDR:       MHDR{MType: MTypeProprietary, Major: LoRaWANR1},
			MACPayload: &DataPayload{Bytes: []byte{5, 6, 7, 8, 9, 10}},
			MIC:        MIC{1, 2, 3, 4},
		}

		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := phy.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0xE0, 5, 6, 7, 8, 9, 10, 1, 2, 3, 4})

			var out PHYPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out.MHDR.MType, ShouldEqual, MTypeProprietary)
			So(out.MIC, ShouldEqual, MIC{1, 2, 3, 4})

			dp, ok := out.MACPayload.(*DataPayload)
			So(ok, ShouldBeTrue)
			So(dp.Bytes, ShouldResemble, []byte{5, 6, 7, 8, 9, 10})
		})
	})
}

func TestPHYPayloadTextCodec(t *testing.T) {
	Convey("Given a Proprietary PHYPayload", t, func() {
		phy := PHYPayload{
			MHDR:       MHDR{MType: MTypeProprietary, Major: LoRaWANR1},
			MACPayload: &DataPayload{Bytes: []byte{1, 2, 3}},
			MIC:        MIC{9, 9, 9, 9},
		}

		Convey("Then MarshalText / UnmarshalText round-trip", func() {
			txt, err := phy.MarshalText()
			So(err, ShouldBeNil)

			var out PHYPayload
			So(out.UnmarshalText(txt), ShouldBeNil)
			So(out.MIC, ShouldEqual, phy.MIC)

			dp, ok := out.MACPayload.(*DataPayload)
			So(ok, ShouldBeTrue)
			So(dp.Bytes, ShouldResemble, []byte{1, 2, 3})
		})
	})
}
