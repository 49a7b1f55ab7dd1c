package maccmd

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMACCommand(t *testing.T) {
	Convey("Given an empty MACCommand", t, func() {
		var m MACCommand

		Convey("Given CID=LinkCheckAns, Payload=LinkCheckAnsPayload(Margin=10, GwCnt=15)", func() {
			m.CID = LinkCheckAns
			m.Payload = &LinkCheckAnsPayload{Margin: 10, GwCnt: 15}
			Convey("Then MarshalBinary returns []byte{2, 10, 15}", func() {
				b, err := m.MarshalBinary()
				So(err, ShouldBeNil)
				So(b, ShouldResemble, []byte{2, 10, 15})
			})
		})

		Convey("Given the slice []byte{2, 10, 15}", func() {
			b := []byte{2, 10, 15}

			Convey("Given the direction is downlink", func() {
				Convey("Then UnmarshalBinary returns a MACCommand with CID=LinkCheckAns", func() {
					err := m.UnmarshalBinary(false, b)
					So(err, ShouldBeNil)
					So(m.CID, ShouldEqual, LinkCheckAns)

					p, ok := m.Payload.(*LinkCheckAnsPayload)
					So(ok, ShouldBeTrue)
					So(p, ShouldResemble, &LinkCheckAnsPayload{Margin: 10, GwCnt: 15})
				})
			})

			Convey("Given the direction is uplink", func() {
				Convey("Then UnmarshalBinary returns an error, since LinkCheckAns has no uplink payload", func() {
					err := m.UnmarshalBinary(true, b)
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("Given the single byte []byte{2} (LinkCheckReq, no payload)", func() {
			Convey("Then UnmarshalBinary succeeds with a nil Payload", func() {
				err := m.UnmarshalBinary(true, []byte{2})
				So(err, ShouldBeNil)
				So(m.CID, ShouldEqual, LinkCheckReq)
				So(m.Payload, ShouldBeNil)
			})
		})
	})
}

func TestDecodeFOpts(t *testing.T) {
	Convey("Given an uplink FOpts stream with a LinkCheckReq and a DevStatusAns", t, func() {
		b := []byte{byte(LinkCheckReq), byte(DevStatusAns), 200, 5}

		Convey("Then DecodeFOpts returns both commands", func() {
			cmds, err := DecodeFOpts(true, b)
			So(err, ShouldBeNil)
			So(cmds, ShouldHaveLength, 2)
			So(cmds[0].CID, ShouldEqual, LinkCheckReq)
			So(cmds[0].Payload, ShouldBeNil)
			So(cmds[1].CID, ShouldEqual, DevStatusAns)
			So(cmds[1].Payload, ShouldResemble, &DevStatusAnsPayload{Battery: 200, Margin: 5})
		})
	})

	Convey("Given a truncated FOpts stream", t, func() {
		b := []byte{byte(DevStatusAns), 200}

		Convey("Then DecodeFOpts returns an error", func() {
			_, err := DecodeFOpts(true, b)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestQueue(t *testing.T) {
	Convey("Given an empty uplink Queue", t, func() {
		q := NewQueue(true)

		Convey("Pushing commands that together fit in 15 bytes succeeds", func() {
			So(q.Push(MACCommand{CID: LinkCheckReq}), ShouldBeNil)
			So(q.Push(MACCommand{CID: DevStatusAns, Payload: &DevStatusAnsPayload{Battery: 100, Margin: 3}}), ShouldBeNil)
			So(q.Len(), ShouldEqual, 2)

			b, err := q.Bytes()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{byte(LinkCheckReq), byte(DevStatusAns), 100, 3})

			Convey("Then Drain empties the queue", func() {
				cmds := q.Drain()
				So(cmds, ShouldHaveLength, 2)
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("Pushing a command that would overflow 15 bytes fails and is not added", func() {
			// NewChannelReq payload is 5 bytes, 6 with the CID; two fit in
			// 15 bytes (12), a third (18) does not.
			for i := 0; i < 2; i++ {
				So(q.Push(MACCommand{CID: NewChannelReq, Payload: &NewChannelReqPayload{}}), ShouldBeNil)
			}
			err := q.Push(MACCommand{CID: NewChannelReq, Payload: &NewChannelReqPayload{}})
			So(err, ShouldNotBeNil)
			So(q.Len(), ShouldEqual, 2)
		})
	})
}
