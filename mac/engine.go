package mac

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/band"
	"github.com/lucasgranberg/lorawan-device/device"
	"github.com/lucasgranberg/lorawan-device/maccmd"
)

// adrAckLimit is the number of uplinks a device sends without a downlink
// response before it starts requesting one (FCtrl.ADRACKReq), per section
// 5's ADR-ACK bookkeeping. LoRaWAN 1.0.4 fixes this at 64 regardless of
// region.
const adrAckLimit = 64

// rfCodingRate is the forward error correction rate this module always
// builds RfConfig with. 1.0.4 does not let a device or network vary it
// per frame, so it is a constant rather than Configuration state.
const rfCodingRate = device.CodingRate4_5

// Engine is a single end-device's LoRaWAN 1.0.4 MAC state machine: the
// credentials and (once joined) session it authenticates frames with, the
// configuration a network has tuned via MAC commands, the region's channel
// plan, and the queue of MAC-command answers awaiting the next uplink.
// Grounded on original_source's mac_1_0_4::Mac<R,D>, adapted from a
// borrow-checked value handed into a future-returning join()/send() call
// to a Go value that owns its state across the lifetime of the device.
type Engine struct {
	Credentials   *Credentials
	Session       *Session
	Configuration *Configuration
	Region        band.Region
	ChannelPlan   band.ChannelPlan

	queue       *maccmd.Queue
	confirmNext bool
	battery     uint8
	margin      int8

	lastDeviceTime *maccmd.DeviceTimeAnsPayload
	store          device.NonVolatileStore
}

// NewEngine returns an Engine for region, with a fresh Configuration and no
// session: the caller must still drive a join before PrepareUplink will
// succeed.
func NewEngine(creds *Credentials, region band.Region) *Engine {
	return &Engine{
		Credentials:   creds,
		Configuration: NewConfiguration(),
		Region:        region,
		ChannelPlan:   region.NewChannelPlan(),
		queue:         maccmd.NewQueue(true),
		battery:       255, // 255: the device cannot measure battery level
	}
}

// Joined reports whether a session has been established.
func (e *Engine) Joined() bool {
	return e.Session != nil
}

// AttachStore wires a NonVolatileStore into the engine. Any DevNonce or
// Configuration overrides persisted from an earlier power cycle are
// restored immediately; from then on every CreateJoinRequest persists
// its incremented DevNonce to store before handing the request back for
// transmission, so a power cycle mid-join never reuses a nonce a join
// server may have already seen. Grounded on original_source's
// Mac::new, which loads a Storable as part of constructing the MAC
// state rather than as an afterthought.
func (e *Engine) AttachStore(store device.NonVolatileStore) error {
	s, err := LoadStorable(store, e.Credentials.AppKey)
	if err != nil {
		return errors.Wrap(err, "mac: load storable")
	}
	e.store = store
	if lorawan.DevNonce(s.DevNonce) > e.Credentials.DevNonce {
		e.Credentials.DevNonce = lorawan.DevNonce(s.DevNonce)
	}
	if s.RX1DataRateOffset != nil {
		e.Configuration.RX1DataRateOffset = s.RX1DataRateOffset
	}
	if s.RXDelay != nil {
		e.Configuration.RXDelay = s.RXDelay
	}
	if s.RX2DataRate != nil {
		e.Configuration.RX2DataRate = s.RX2DataRate
	}
	if s.RX2Frequency != nil {
		e.Configuration.RX2Frequency = s.RX2Frequency
	}
	return nil
}

// currentStorable snapshots the engine state SaveStorable persists.
func (e *Engine) currentStorable() Storable {
	return Storable{
		RX1DataRateOffset: e.Configuration.RX1DataRateOffset,
		RXDelay:           e.Configuration.RXDelay,
		RX2DataRate:       e.Configuration.RX2DataRate,
		RX2Frequency:      e.Configuration.RX2Frequency,
		DevNonce:          uint16(e.Credentials.DevNonce),
	}
}

// SetBatteryLevel records the battery level reported in the next
// DevStatusAns. 0 means externally powered, 1-254 a relative level, 255
// means unmeasurable, per section 6 of the 1.0.4 MAC commands.
func (e *Engine) SetBatteryLevel(level uint8) {
	e.battery = level
}

// SetMargin records the SNR margin reported in the next DevStatusAns. No
// radio driver in this module's scope measures it, so callers that care
// about an accurate DevStatusAns must compute and set it themselves.
func (e *Engine) SetMargin(margin int8) {
	e.margin = margin
}

// LastDeviceTime returns the most recent DeviceTimeAns this engine has
// received, or nil if none has. It is advisory only: nothing in this
// module consumes it, a caller that needs wall-clock time reads it here.
func (e *Engine) LastDeviceTime() *maccmd.DeviceTimeAnsPayload {
	return e.lastDeviceTime
}

// CreateJoinRequest advances Credentials.DevNonce (persisting it when a
// store is attached), then builds and signs a join-request PHYPayload
// carrying the new value, so a retried join never reuses a value a join
// server may have already seen. Grounded on original_source's
// Mac::create_join_request.
func (e *Engine) CreateJoinRequest() (*lorawan.PHYPayload, error) {
	e.Credentials.IncrDevNonce()
	if e.store != nil {
		if err := SaveStorable(e.store, e.Credentials.AppKey, e.currentStorable()); err != nil {
			return nil, errors.Wrap(err, "mac: persist dev nonce")
		}
	}
	phy := &lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: lorawan.MTypeJoinRequest, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.JoinRequestPayload{
			JoinEUI:  e.Credentials.JoinEUI,
			DevEUI:   e.Credentials.DevEUI,
			DevNonce: e.Credentials.DevNonce,
		},
	}
	if err := phy.SetUplinkJoinMIC(e.Credentials.AppKey); err != nil {
		return nil, errors.Wrap(err, "mac: set join-request mic")
	}
	return phy, nil
}

// HandleJoinAccept decrypts and validates a received join-accept
// PHYPayload, derives a fresh Session from it, applies its DLSettings and
// RXDelay as Configuration overrides, and folds its CFList (if any) into
// the channel plan. Grounded on original_source's Mac::join.
func (e *Engine) HandleJoinAccept(phy *lorawan.PHYPayload) error {
	if err := phy.DecryptJoinAcceptPayload(e.Credentials.AppKey); err != nil {
		return errors.Wrap(err, "mac: decrypt join-accept")
	}
	valid, err := phy.ValidateDownlinkJoinMIC(e.Credentials.AppKey)
	if err != nil {
		return errors.Wrap(err, "mac: validate join-accept mic")
	}
	if !valid {
		return &lorawan.Error{Kind: lorawan.KindInvalidMic, Msg: "join-accept"}
	}

	ja, ok := phy.MACPayload.(*lorawan.JoinAcceptPayload)
	if !ok {
		return &lorawan.Error{Kind: lorawan.KindUnableToDecodePayload}
	}

	session, err := DeriveSession(ja, e.Credentials)
	if err != nil {
		return errors.Wrap(err, "mac: derive session")
	}
	e.Session = session

	rx1Offset := ja.DLSettings.RX1DROffset
	e.Configuration.RX1DataRateOffset = &rx1Offset
	rx2dr := ja.DLSettings.RX2DataRate
	e.Configuration.RX2DataRate = &rx2dr
	rxDelay := ja.RXDelay
	if rxDelay == 0 {
		rxDelay = 1
	}
	e.Configuration.RXDelay = &rxDelay

	if ja.CFList != nil {
		if err := e.ChannelPlan.HandleCFList(*ja.CFList); err != nil {
			if lerr, ok := err.(*lorawan.Error); ok && lerr.Kind == lorawan.KindInvalidCfListType {
				log.WithField("dev_addr", session.DevAddr).Debug("mac: ignoring cflist of unexpected type")
			} else {
				return errors.Wrap(err, "mac: handle join-accept cflist")
			}
		}
	}

	log.WithField("dev_addr", session.DevAddr).Debug("mac: joined")
	return nil
}

// PrepareUplink builds a signed, encrypted data-frame PHYPayload ready for
// transmission: FCtrl's ADR/ADRACKReq/ACK bits set per the ADR-ACK
// bookkeeping and confirm-next rules, any queued MAC-command answers
// piggybacked into FOpts, and pkt's payload (if any) placed in FRMPayload.
// It returns the full 32 bit uplink frame counter the frame was built
// against. The counter is NOT incremented here — HandleDownlink advances it
// when a downlink is accepted, and ConfirmTransmitted when the transmitted
// frame got none, so a transmission that never goes out doesn't burn a
// counter value. Grounded on
// original_source's Mac::prepare_buffer.
func (e *Engine) PrepareUplink(pkt device.Packet) (*lorawan.PHYPayload, uint32, error) {
	if e.Session == nil {
		return nil, 0, &lorawan.Error{Kind: lorawan.KindNetworkNotJoined}
	}
	if e.Session.IsExpired() {
		return nil, 0, &lorawan.Error{Kind: lorawan.KindSessionExpired}
	}

	fOpts, err := e.queue.Bytes()
	if err != nil {
		return nil, 0, errors.Wrap(err, "mac: marshal fopts")
	}
	e.queue.Drain()

	ack := e.confirmNext
	e.confirmNext = false

	fctrl, err := lorawan.NewFCtrl(true, e.Session.ADRAckCnt >= adrAckLimit, ack, false, uint8(len(fOpts)))
	if err != nil {
		return nil, 0, errors.Wrap(err, "mac: build fctrl")
	}

	macPL := &lorawan.MACPayload{
		FHDR: lorawan.FHDR{
			DevAddr: e.Session.DevAddr,
			FCtrl:   fctrl,
			FCnt:    uint16(e.Session.FCntUp),
			FOpts:   fOpts,
		},
	}

	if len(pkt.Payload) > 0 {
		fPort := pkt.FPort
		macPL.FPort = &fPort
		macPL.FRMPayload = &lorawan.DataPayload{Bytes: pkt.Payload}
	}

	mType := lorawan.MTypeUnconfirmedDataUp
	if pkt.ConfirmUplink {
		mType = lorawan.MTypeConfirmedDataUp
	}

	phy := &lorawan.PHYPayload{
		MHDR:       lorawan.MHDR{MType: mType, Major: lorawan.LoRaWANR1},
		MACPayload: macPL,
	}

	frmKey := e.Session.AppSKey
	if macPL.FPort != nil && *macPL.FPort == 0 {
		frmKey = e.Session.NwkSKey
	}
	if err := phy.EncryptFRMPayload(frmKey, e.Session.FCntUp); err != nil {
		return nil, 0, errors.Wrap(err, "mac: encrypt frmpayload")
	}
	if err := phy.EncryptFOpts(e.Session.NwkSKey, e.Session.FCntUp); err != nil {
		return nil, 0, errors.Wrap(err, "mac: encrypt fopts")
	}
	if err := phy.SetUplinkDataMIC(e.Session.NwkSKey, e.Session.FCntUp); err != nil {
		return nil, 0, errors.Wrap(err, "mac: set uplink mic")
	}

	return phy, e.Session.FCntUp, nil
}

// ConfirmTransmitted advances the uplink frame counter and the ADR-ACK
// bookkeeping counter once a prepared uplink has actually reached the
// radio. Call this after a successful device.Radio.TX of the PHYPayload
// PrepareUplink returned when no downlink was accepted in its receive
// windows; HandleDownlink already advances the uplink counter for an
// uplink that got one.
func (e *Engine) ConfirmTransmitted() {
	if e.Session == nil {
		return
	}
	e.Session.FCntUpIncrement()
	e.Session.ADRAckCntIncrement()
}

// HandleDownlink validates, decrypts, and dispatches a received downlink
// data-frame PHYPayload. It reconstructs the full 32 bit downlink frame
// counter, rejecting a replayed or non-advancing value, dispatches any MAC
// commands carried in FOpts or (for an FPort=0 frame) FRMPayload, and
// returns the application payload of a non-MAC-command frame. Grounded on
// original_source's Mac::send downlink handling.
func (e *Engine) HandleDownlink(phy *lorawan.PHYPayload) ([]byte, error) {
	if e.Session == nil {
		return nil, &lorawan.Error{Kind: lorawan.KindNetworkNotJoined}
	}

	macPL, ok := phy.MACPayload.(*lorawan.MACPayload)
	if !ok {
		return nil, &lorawan.Error{Kind: lorawan.KindUnableToDecodePayload}
	}
	if macPL.FHDR.DevAddr != e.Session.DevAddr {
		return nil, &lorawan.Error{Kind: lorawan.KindInvalidDevAddr}
	}

	fCnt32, ok := reconstructFCnt(e.Session.FCntDown, macPL.FHDR.FCnt)
	if !ok {
		return nil, &lorawan.Error{Kind: lorawan.KindInvalidMic, Msg: "frame counter did not advance"}
	}

	valid, err := phy.ValidateDownlinkDataMIC(e.Session.NwkSKey, fCnt32)
	if err != nil {
		return nil, errors.Wrap(err, "mac: validate downlink mic")
	}
	if !valid {
		return nil, &lorawan.Error{Kind: lorawan.KindInvalidMic}
	}

	if err := phy.DecryptFOpts(e.Session.NwkSKey, fCnt32); err != nil {
		return nil, errors.Wrap(err, "mac: decrypt fopts")
	}

	e.Session.FCntDown = fCnt32
	e.Session.ADRAckCntClear()
	e.Session.FCntUpIncrement()

	if phy.MHDR.MType == lorawan.MTypeConfirmedDataDown {
		e.confirmNext = true
	}

	if len(macPL.FHDR.FOpts) > 0 {
		cmds, err := maccmd.DecodeFOpts(false, macPL.FHDR.FOpts)
		if err != nil {
			return nil, errors.Wrap(err, "mac: decode fopts mac commands")
		}
		e.dispatchDownlink(cmds)
	}

	if macPL.FPort == nil {
		return nil, nil
	}

	if *macPL.FPort == 0 {
		if err := phy.DecryptFRMPayload(e.Session.NwkSKey, fCnt32); err != nil {
			return nil, errors.Wrap(err, "mac: decrypt frmpayload")
		}
		dp, ok := macPL.FRMPayload.(*lorawan.DataPayload)
		if !ok {
			return nil, nil
		}
		cmds, err := maccmd.DecodeFOpts(false, dp.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "mac: decode frmpayload mac commands")
		}
		e.dispatchDownlink(cmds)
		return nil, nil
	}

	if err := phy.DecryptFRMPayload(e.Session.AppSKey, fCnt32); err != nil {
		return nil, errors.Wrap(err, "mac: decrypt frmpayload")
	}
	dp, ok := macPL.FRMPayload.(*lorawan.DataPayload)
	if !ok {
		return nil, nil
	}
	return dp.Bytes, nil
}

// reconstructFCnt recovers the full 32 bit downlink frame counter from its
// 16 bit wire value and the last accepted full counter, tolerating a
// single 16 bit rollover and rejecting a counter that does not advance
// (replay protection). The very first downlink of a session (lastFull==0)
// is accepted unconditionally, including a wire value of 0. Generalized
// from original_source's single-rollover inequality check in Mac::send
// ("fcnt > session.fcnt_down || fcnt == 0") to explicit 32 bit
// reconstruction, matching spec.md's frame-counter semantics.
// fCntRolloverThreshold is how close to the top of the 16 bit wire range
// the last accepted counter must be before a smaller wire value is
// accepted as a genuine rollover rather than rejected as stale/replayed.
const fCntRolloverThreshold = 0xF000

func reconstructFCnt(lastFull uint32, wire uint16) (uint32, bool) {
	if lastFull == 0 {
		return uint32(wire), true
	}

	lastLow := uint16(lastFull)
	hi := lastFull &^ 0xFFFF

	switch {
	case wire > lastLow:
		return hi | uint32(wire), true
	case wire < lastLow && lastLow >= fCntRolloverThreshold:
		return hi + 0x10000 + uint32(wire), true
	default:
		return 0, false
	}
}

// CreateTxConfig resolves the radio parameters for the next uplink
// transmission on one of the channel plan's candidate channels, selected
// by frame and the caller-supplied per-block random draws (origin of the
// randomness is device.RNG, owned by the caller/scheduler). blockIndex
// picks which of the NumChannelBlocks resulting candidates to use; a
// caller that gets an error back should try another index before giving
// up with KindNoValidChannelFound. The selected channel and uplink data
// rate are returned alongside the TxConfig so the caller can pass them to
// CreateRx1Config, whose DLFrequency can differ from ULFrequency on a
// fixed channel plan.
func (e *Engine) CreateTxConfig(frame band.Frame, blockRandoms [band.NumChannelBlocks]uint32, blockIndex int) (device.TxConfig, *band.Channel, uint8, error) {
	channels := e.ChannelPlan.RandomChannelsFromBlocks(blockRandoms, frame)
	if blockIndex < 0 || blockIndex >= len(channels) || channels[blockIndex] == nil {
		return device.TxConfig{}, nil, 0, &lorawan.Error{Kind: lorawan.KindNoValidChannelFound}
	}
	ch := channels[blockIndex]

	dr := e.Region.DefaultDataRate()
	if e.Configuration.TXDataRate != nil {
		dr = *e.Configuration.TXDataRate
	}
	dr = e.Region.OverrideUplinkDataRate(dr)

	rate, err := e.Region.DataRate(dr)
	if err != nil {
		return device.TxConfig{}, nil, 0, errors.Wrap(err, "mac: resolve data rate")
	}

	dbm := e.Region.MaxEIRP()
	if e.Configuration.TXPower != nil {
		v, err := e.Region.ModifyDBm(*e.Configuration.TXPower, e.Region.MaxEIRP())
		if err == nil {
			dbm = v
		}
	}

	return device.TxConfig{
		Power: int8(dbm),
		RF: device.RfConfig{
			Frequency:  ch.ULFrequency,
			CodingRate: rfCodingRate,
			DataRate:   toDeviceDataRate(rate),
		},
	}, ch, dr, nil
}

// CreateRx1Config resolves the RF parameters for the RX1 window following
// an uplink sent at ulDR on ch, applying the network's RX1 data-rate
// offset override if RXParamSetupReq has set one.
func (e *Engine) CreateRx1Config(ulDR uint8, ch *band.Channel) (device.RfConfig, error) {
	offset := e.Region.DefaultRX1DROffset()
	if e.Configuration.RX1DataRateOffset != nil {
		offset = *e.Configuration.RX1DataRateOffset
	}

	dr, err := e.Region.GetRX1DataRate(ulDR, offset)
	if err != nil {
		return device.RfConfig{}, errors.Wrap(err, "mac: resolve rx1 data rate")
	}
	rate, err := e.Region.DataRate(dr)
	if err != nil {
		return device.RfConfig{}, errors.Wrap(err, "mac: resolve rx1 data rate")
	}

	return device.RfConfig{
		Frequency:  ch.DLFrequency,
		CodingRate: rfCodingRate,
		DataRate:   toDeviceDataRate(rate),
	}, nil
}

// CreateRx2Config resolves the RF parameters for the RX2 window, using the
// region defaults unless the network has overridden them via
// RXParamSetupReq.
func (e *Engine) CreateRx2Config() (device.RfConfig, error) {
	freq := e.Region.DefaultRX2Frequency()
	if e.Configuration.RX2Frequency != nil {
		freq = *e.Configuration.RX2Frequency
	}
	dr := e.Region.DefaultRX2DataRate()
	if e.Configuration.RX2DataRate != nil {
		dr = *e.Configuration.RX2DataRate
	}

	rate, err := e.Region.DataRate(dr)
	if err != nil {
		return device.RfConfig{}, errors.Wrap(err, "mac: resolve rx2 data rate")
	}

	return device.RfConfig{
		Frequency:  freq,
		CodingRate: rfCodingRate,
		DataRate:   toDeviceDataRate(rate),
	}, nil
}

func toDeviceDataRate(r band.DataRate) device.DataRate {
	return device.DataRate{
		FSK:             r.Modulation == "FSK",
		SpreadingFactor: r.SpreadFactor,
		Bandwidth:       toDeviceBandwidth(r.Bandwidth),
		BitRate:         r.BitRate,
	}
}

func toDeviceBandwidth(khz int) device.Bandwidth {
	switch khz {
	case 250:
		return device.Bandwidth250kHz
	case 500:
		return device.Bandwidth500kHz
	default:
		return device.Bandwidth125kHz
	}
}
