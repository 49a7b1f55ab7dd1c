package mac

import (
	"testing"

	"github.com/stretchr/testify/require"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/band"
	"github.com/lucasgranberg/lorawan-device/device"
	"github.com/lucasgranberg/lorawan-device/maccmd"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	region, err := band.GetRegion(band.EU868)
	require.NoError(t, err)

	var appKey lorawan.AES128Key
	for i := range appKey {
		appKey[i] = byte(i)
	}
	creds := NewCredentials(lorawan.EUI64{1, 2, 3, 4, 5, 6, 7, 8}, lorawan.EUI64{8, 7, 6, 5, 4, 3, 2, 1}, appKey)
	return NewEngine(creds, region)
}

func joinEngine(t *testing.T, e *Engine) {
	t.Helper()

	req, err := e.CreateJoinRequest()
	require.NoError(t, err)
	require.Equal(t, lorawan.DevNonce(1), e.Credentials.DevNonce)

	jr := req.MACPayload.(*lorawan.JoinRequestPayload)

	accept := &lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: lorawan.MTypeJoinAccept, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.JoinAcceptPayload{
			AppNonce:   lorawan.AppNonce{1, 2, 3},
			NetID:      lorawan.NetID{4, 5, 6},
			DevAddr:    lorawan.DevAddr{1, 2, 3, 4},
			DLSettings: lorawan.DLSettings{RX1DROffset: 0, RX2DataRate: 0},
			RXDelay:    1,
		},
	}
	require.NoError(t, accept.SetDownlinkJoinMIC(e.Credentials.AppKey))
	require.NoError(t, accept.EncryptJoinAcceptPayload(e.Credentials.AppKey))

	require.NoError(t, e.HandleJoinAccept(accept))
	require.True(t, e.Joined())
	require.NotNil(t, jr)
}

func TestJoin(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)
	require.Equal(t, lorawan.DevAddr{1, 2, 3, 4}, e.Session.DevAddr)
}

func TestJoinAcceptWithMismatchedCFListTypeStillJoins(t *testing.T) {
	e := testEngine(t)

	_, err := e.CreateJoinRequest()
	require.NoError(t, err)

	accept := &lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: lorawan.MTypeJoinAccept, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.JoinAcceptPayload{
			AppNonce:   lorawan.AppNonce{1, 2, 3},
			NetID:      lorawan.NetID{4, 5, 6},
			DevAddr:    lorawan.DevAddr{1, 2, 3, 4},
			DLSettings: lorawan.DLSettings{RX1DROffset: 0, RX2DataRate: 0},
			RXDelay:    1,
			// EU868 is a dynamic plan expecting CFListChannel; a type-1
			// CFListChannelMask must be dropped, not fail the join.
			CFList: &lorawan.CFList{Type: lorawan.CFListChannelMask},
		},
	}
	require.NoError(t, accept.SetDownlinkJoinMIC(e.Credentials.AppKey))
	require.NoError(t, accept.EncryptJoinAcceptPayload(e.Credentials.AppKey))

	require.NoError(t, e.HandleJoinAccept(accept))
	require.True(t, e.Joined())
}

func TestPrepareUplinkBeforeJoinFails(t *testing.T) {
	e := testEngine(t)
	_, _, err := e.PrepareUplink(device.Packet{Payload: []byte("hello"), FPort: 10})
	require.Error(t, err)
	var lerr *lorawan.Error
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, lorawan.KindNetworkNotJoined, lerr.Kind)
}

func TestPrepareAndHandleUplinkRoundTrip(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)

	phy, fCnt, err := e.PrepareUplink(device.Packet{Payload: []byte("hello"), FPort: 10})
	require.NoError(t, err)
	require.Equal(t, uint32(0), fCnt)

	ok, err := phy.ValidateUplinkDataMIC(e.Session.NwkSKey, fCnt)
	require.NoError(t, err)
	require.True(t, ok)

	e.ConfirmTransmitted()
	require.Equal(t, uint32(1), e.Session.FCntUp)
}

func TestHandleDownlinkRejectsWrongDevAddr(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)

	macPL := &lorawan.MACPayload{
		FHDR: lorawan.FHDR{DevAddr: lorawan.DevAddr{9, 9, 9, 9}, FCnt: 0},
	}
	phy := &lorawan.PHYPayload{
		MHDR:       lorawan.MHDR{MType: lorawan.MTypeUnconfirmedDataDown, Major: lorawan.LoRaWANR1},
		MACPayload: macPL,
	}
	require.NoError(t, phy.SetDownlinkDataMIC(e.Session.NwkSKey, 0))

	_, err := e.HandleDownlink(phy)
	require.Error(t, err)
	var lerr *lorawan.Error
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, lorawan.KindInvalidDevAddr, lerr.Kind)
}

func TestHandleDownlinkAppPayload(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)

	fPort := uint8(5)
	macPL := &lorawan.MACPayload{
		FHDR:       lorawan.FHDR{DevAddr: e.Session.DevAddr, FCnt: 0},
		FPort:      &fPort,
		FRMPayload: &lorawan.DataPayload{Bytes: []byte("world")},
	}
	phy := &lorawan.PHYPayload{
		MHDR:       lorawan.MHDR{MType: lorawan.MTypeUnconfirmedDataDown, Major: lorawan.LoRaWANR1},
		MACPayload: macPL,
	}
	require.NoError(t, phy.EncryptFRMPayload(e.Session.AppSKey, 0))
	require.NoError(t, phy.SetDownlinkDataMIC(e.Session.NwkSKey, 0))

	payload, err := e.HandleDownlink(phy)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), payload)
	require.Equal(t, uint32(0), e.Session.FCntDown)
	require.Equal(t, uint32(1), e.Session.FCntUp)
}

func TestHandleDownlinkRejectsReplay(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)
	e.Session.FCntDown = 5

	macPL := &lorawan.MACPayload{
		FHDR: lorawan.FHDR{DevAddr: e.Session.DevAddr, FCnt: 3},
	}
	phy := &lorawan.PHYPayload{
		MHDR:       lorawan.MHDR{MType: lorawan.MTypeUnconfirmedDataDown, Major: lorawan.LoRaWANR1},
		MACPayload: macPL,
	}
	require.NoError(t, phy.SetDownlinkDataMIC(e.Session.NwkSKey, 3))

	_, err := e.HandleDownlink(phy)
	require.Error(t, err)
}

func TestDevStatusReqQueuesAns(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)
	e.SetBatteryLevel(100)
	e.SetMargin(3)

	e.dispatchDownlink([]maccmd.MACCommand{{CID: maccmd.DevStatusReq}})
	require.Equal(t, 1, e.queue.Len())

	b, err := e.queue.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{byte(maccmd.DevStatusAns), 100, 3}, b)
}

func TestLinkADRReqUpdatesConfiguration(t *testing.T) {
	e := testEngine(t)
	joinEngine(t, e)

	var mask maccmd.ChMask
	mask[0] = true
	p := &maccmd.LinkADRReqPayload{
		DataRate:   5,
		TXPower:    2,
		ChMask:     mask,
		Redundancy: maccmd.Redundancy{ChMaskCntl: 0, NbRep: 3},
	}
	e.dispatchDownlink([]maccmd.MACCommand{{CID: maccmd.LinkADRReq, Payload: p}})

	require.NotNil(t, e.Configuration.TXDataRate)
	require.Equal(t, uint8(5), *e.Configuration.TXDataRate)
	require.NotNil(t, e.Configuration.TXPower)
	require.Equal(t, uint8(2), *e.Configuration.TXPower)
	require.Equal(t, uint8(3), e.Configuration.NumberOfTransmissions)
	require.Equal(t, 1, e.queue.Len())
}

func TestReconstructFCnt(t *testing.T) {
	v, ok := reconstructFCnt(0, 0)
	require.True(t, ok)
	require.Equal(t, uint32(0), v)

	v, ok = reconstructFCnt(10, 11)
	require.True(t, ok)
	require.Equal(t, uint32(11), v)

	_, ok = reconstructFCnt(10, 10)
	require.False(t, ok)

	v, ok = reconstructFCnt(0xFFFF0, 5)
	require.True(t, ok)
	require.Equal(t, uint32(0x100005), v)
}
