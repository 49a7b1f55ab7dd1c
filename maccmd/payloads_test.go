package maccmd

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	lorawan "github.com/lucasgranberg/lorawan-device"
)

func TestLinkCheckAnsPayload(t *testing.T) {
	Convey("Given a LinkCheckAnsPayload with Margin=123 and GwCnt=234", t, func() {
		p := LinkCheckAnsPayload{Margin: 123, GwCnt: 234}
		Convey("Then MarshalBinary returns []byte{123, 234}", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{123, 234})
		})
	})
}

func TestChMask(t *testing.T) {
	Convey("Given an empty ChMask", t, func() {
		var m ChMask
		Convey("Then MarshalBinary returns []byte{0, 0}", func() {
			b, err := m.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0, 0})
		})

		Convey("Given channels 0 and 8 are enabled", func() {
			m[0] = true
			m[8] = true
			Convey("Then MarshalBinary returns []byte{1, 1}", func() {
				b, err := m.MarshalBinary()
				So(err, ShouldBeNil)
				So(b, ShouldResemble, []byte{1, 1})
			})
		})

		Convey("Given the slice []byte{1, 1}", func() {
			b := []byte{1, 1}
			Convey("Then UnmarshalBinary enables channels 0 and 8", func() {
				So(m.UnmarshalBinary(b), ShouldBeNil)
				So(m[0], ShouldBeTrue)
				So(m[8], ShouldBeTrue)
			})
		})
	})
}

func TestRedundancy(t *testing.T) {
	Convey("Given a Redundancy with ChMaskCntl=5, NbRep=2", t, func() {
		r := Redundancy{ChMaskCntl: 5, NbRep: 2}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := r.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x52})

			var out Redundancy
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, r)
		})

		Convey("Given NbRep > 15", func() {
			r.NbRep = 16
			Convey("Then MarshalBinary returns an error", func() {
				_, err := r.MarshalBinary()
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLinkADRReqPayload(t *testing.T) {
	Convey("Given a LinkADRReqPayload", t, func() {
		p := LinkADRReqPayload{
			DataRate: 1,
			TXPower:  2,
			ChMask:   ChMask{0: true},
			Redundancy: Redundancy{
				ChMaskCntl: 1,
				NbRep:      2,
			},
		}

		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 4)

			var out LinkADRReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})

		Convey("Given DataRate=16", func() {
			p.DataRate = 16
			Convey("Then MarshalBinary returns an error", func() {
				_, err := p.MarshalBinary()
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLinkADRAnsPayload(t *testing.T) {
	Convey("Given a LinkADRAnsPayload with all acks set", t, func() {
		p := LinkADRAnsPayload{ChannelMaskACK: true, DataRateACK: true, PowerACK: true}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x07})

			var out LinkADRAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestDutyCycleReqPayload(t *testing.T) {
	Convey("Given a DutyCycleReqPayload with MaxDCycle=15", t, func() {
		p := DutyCycleReqPayload{MaxDCycle: 15}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{15})

			var out DutyCycleReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})

		Convey("Given MaxDCycle=255 (no limit)", func() {
			p.MaxDCycle = 255
			Convey("Then MarshalBinary succeeds", func() {
				_, err := p.MarshalBinary()
				So(err, ShouldBeNil)
			})
		})

		Convey("Given MaxDCycle=16", func() {
			p.MaxDCycle = 16
			Convey("Then MarshalBinary returns an error", func() {
				_, err := p.MarshalBinary()
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestRXParamSetupReqPayload(t *testing.T) {
	Convey("Given a RXParamSetupReqPayload", t, func() {
		p := RXParamSetupReqPayload{
			Frequency:  868100000,
			DLSettings: lorawan.DLSettings{RX1DROffset: 3, RX2DataRate: 5},
		}

		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 4)

			var out RXParamSetupReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})

		Convey("Given a Frequency that is not a multiple of 100", func() {
			p.Frequency = 868100001
			Convey("Then MarshalBinary returns an error", func() {
				_, err := p.MarshalBinary()
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestRXParamSetupAnsPayload(t *testing.T) {
	Convey("Given a RXParamSetupAnsPayload with all acks set", t, func() {
		p := RXParamSetupAnsPayload{ChannelACK: true, RX2DataRateACK: true, RX1DROffsetACK: true}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x07})

			var out RXParamSetupAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestDevStatusAnsPayload(t *testing.T) {
	Convey("Given a DevStatusAnsPayload with a negative margin", t, func() {
		p := DevStatusAnsPayload{Battery: 200, Margin: -10}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{200, 54})

			var out DevStatusAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})

		Convey("Given Margin=-33", func() {
			p.Margin = -33
			Convey("Then MarshalBinary returns an error", func() {
				_, err := p.MarshalBinary()
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestNewChannelReqPayload(t *testing.T) {
	Convey("Given a NewChannelReqPayload", t, func() {
		p := NewChannelReqPayload{ChIndex: 3, Freq: 867100000, MinDR: 0, MaxDR: 5}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 5)

			var out NewChannelReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestNewChannelAnsPayload(t *testing.T) {
	Convey("Given a NewChannelAnsPayload with both acks set", t, func() {
		p := NewChannelAnsPayload{ChannelFrequencyOK: true, DataRateRangeOK: true}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x03})

			var out NewChannelAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestRXTimingSetupReqPayload(t *testing.T) {
	Convey("Given a RXTimingSetupReqPayload with Delay=15", t, func() {
		p := RXTimingSetupReqPayload{Delay: 15}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{15})

			var out RXTimingSetupReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})

		Convey("Given Delay=16", func() {
			p.Delay = 16
			Convey("Then MarshalBinary returns an error", func() {
				_, err := p.MarshalBinary()
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestTXParamSetupReqPayload(t *testing.T) {
	Convey("Given a TXParamSetupReqPayload with MaxEIRP=8 (lowest table entry)", t, func() {
		p := TXParamSetupReqPayload{MaxEIRP: 8, UplinkDwellTime: DwellTime400ms}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x10})

			var out TXParamSetupReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestDLChannelReqPayload(t *testing.T) {
	Convey("Given a DLChannelReqPayload", t, func() {
		p := DLChannelReqPayload{ChIndex: 2, Freq: 868500000}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 4)

			var out DLChannelReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestDLChannelAnsPayload(t *testing.T) {
	Convey("Given a DLChannelAnsPayload with both flags set", t, func() {
		p := DLChannelAnsPayload{UplinkFrequencyExists: true, ChannelFrequencyOK: true}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x03})

			var out DLChannelAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestDeviceTimeAnsPayload(t *testing.T) {
	Convey("Given a DeviceTimeAnsPayload", t, func() {
		p := DeviceTimeAnsPayload{SecondsSinceEpoch: 1000, FracSecond: 128}
		Convey("Then MarshalBinary / UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 5)

			var out DeviceTimeAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}
