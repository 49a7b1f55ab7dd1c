package mac

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/lucasgranberg/lorawan-device/maccmd"
)

// dispatchDownlink applies each decoded downlink MAC command to Engine
// state and queues the matching uplink answer, if any. A single malformed
// or unsupported command is logged and skipped rather than aborting the
// whole batch, so one bad command never drops every other command's
// answer.
func (e *Engine) dispatchDownlink(cmds []maccmd.MACCommand) {
	for _, cmd := range cmds {
		if err := e.applyDownlink(cmd); err != nil {
			log.WithFields(log.Fields{"cid": cmd.CID}).WithError(err).Debug("mac: dropping mac command")
		}
	}
}

func (e *Engine) applyDownlink(cmd maccmd.MACCommand) error {
	switch cmd.CID {
	case maccmd.LinkCheckAns:
		// informational only; this module keeps no link-margin state of its own.
		return nil
	case maccmd.LinkADRReq:
		return e.handleLinkADRReq(cmd)
	case maccmd.DutyCycleReq:
		return e.handleDutyCycleReq(cmd)
	case maccmd.RXParamSetupReq:
		return e.handleRXParamSetupReq(cmd)
	case maccmd.DevStatusReq:
		return e.queueDevStatusAns()
	case maccmd.NewChannelReq:
		return e.handleNewChannelReq(cmd)
	case maccmd.RXTimingSetupReq:
		return e.handleRXTimingSetupReq(cmd)
	case maccmd.TXParamSetupReq:
		return e.handleTXParamSetupReq(cmd)
	case maccmd.DLChannelReq:
		return e.handleDLChannelReq(cmd)
	case maccmd.DeviceTimeAns:
		p, ok := cmd.Payload.(*maccmd.DeviceTimeAnsPayload)
		if !ok {
			return errors.New("mac: malformed DeviceTimeAns")
		}
		e.lastDeviceTime = p
		return nil
	default:
		return errors.Errorf("mac: unsupported downlink command %s", cmd.CID)
	}
}

func (e *Engine) handleLinkADRReq(cmd maccmd.MACCommand) error {
	p, ok := cmd.Payload.(*maccmd.LinkADRReqPayload)
	if !ok {
		return errors.New("mac: malformed LinkADRReq")
	}

	var ans maccmd.LinkADRAnsPayload

	if err := e.ChannelPlan.HandleChannelMaskReq(p.ChMask, p.Redundancy.ChMaskCntl); err == nil {
		ans.ChannelMaskACK = true
	}

	if _, err := e.Region.DataRate(p.DataRate); err == nil {
		dr := p.DataRate
		e.Configuration.TXDataRate = &dr
		ans.DataRateACK = true
	}

	if _, err := e.Region.ModifyDBm(p.TXPower, e.Region.MaxEIRP()); err == nil {
		tp := p.TXPower
		e.Configuration.TXPower = &tp
		ans.PowerACK = true
	}

	if ans.ChannelMaskACK && ans.DataRateACK && ans.PowerACK {
		e.Configuration.NumberOfTransmissions = p.Redundancy.NbRep
		if e.Configuration.NumberOfTransmissions == 0 {
			e.Configuration.NumberOfTransmissions = 1
		}
	}

	return e.queue.Push(maccmd.MACCommand{CID: maccmd.LinkADRAns, Payload: &ans})
}

func (e *Engine) handleDutyCycleReq(cmd maccmd.MACCommand) error {
	p, ok := cmd.Payload.(*maccmd.DutyCycleReqPayload)
	if !ok {
		return errors.New("mac: malformed DutyCycleReq")
	}
	e.Configuration.MaxDutyCycle = dutyCycleFraction(p.MaxDCycle)
	return e.queue.Push(maccmd.MACCommand{CID: maccmd.DutyCycleAns})
}

// dutyCycleFraction converts a DutyCycleReq MaxDCycle field into the
// allowed fraction of airtime: 1/(2^MaxDCycle), or 1 (unrestricted) for
// the reserved value 255.
func dutyCycleFraction(maxDCycle uint8) float32 {
	if maxDCycle == 255 {
		return 1
	}
	return 1 / float32(uint32(1)<<maxDCycle)
}

func (e *Engine) handleRXParamSetupReq(cmd maccmd.MACCommand) error {
	p, ok := cmd.Payload.(*maccmd.RXParamSetupReqPayload)
	if !ok {
		return errors.New("mac: malformed RXParamSetupReq")
	}

	var ans maccmd.RXParamSetupAnsPayload

	if p.Frequency >= e.Region.MinFrequency() && p.Frequency <= e.Region.MaxFrequency() {
		ans.ChannelACK = true
	}
	if _, err := e.Region.DataRate(p.DLSettings.RX2DataRate); err == nil {
		ans.RX2DataRateACK = true
	}
	if p.DLSettings.RX1DROffset <= 5 {
		ans.RX1DROffsetACK = true
	}

	if ans.ChannelACK && ans.RX2DataRateACK && ans.RX1DROffsetACK {
		freq := p.Frequency
		e.Configuration.RX2Frequency = &freq
		dr := p.DLSettings.RX2DataRate
		e.Configuration.RX2DataRate = &dr
		offset := p.DLSettings.RX1DROffset
		e.Configuration.RX1DataRateOffset = &offset
	}

	return e.queue.Push(maccmd.MACCommand{CID: maccmd.RXParamSetupAns, Payload: &ans})
}

func (e *Engine) queueDevStatusAns() error {
	return e.queue.Push(maccmd.MACCommand{
		CID:     maccmd.DevStatusAns,
		Payload: &maccmd.DevStatusAnsPayload{Battery: e.battery, Margin: e.margin},
	})
}

func (e *Engine) handleNewChannelReq(cmd maccmd.MACCommand) error {
	p, ok := cmd.Payload.(*maccmd.NewChannelReqPayload)
	if !ok {
		return errors.New("mac: malformed NewChannelReq")
	}

	ans := maccmd.NewChannelAnsPayload{
		ChannelFrequencyOK: p.Freq >= e.Region.MinFrequency() && p.Freq <= e.Region.MaxFrequency(),
		DataRateRangeOK:    p.MinDR <= p.MaxDR && p.MaxDR <= e.Region.MaxDataRate(),
	}
	if ans.ChannelFrequencyOK && ans.DataRateRangeOK {
		if err := e.ChannelPlan.HandleNewChannelReq(*p); err != nil {
			ans.ChannelFrequencyOK = false
		}
	}

	return e.queue.Push(maccmd.MACCommand{CID: maccmd.NewChannelAns, Payload: &ans})
}

func (e *Engine) handleRXTimingSetupReq(cmd maccmd.MACCommand) error {
	p, ok := cmd.Payload.(*maccmd.RXTimingSetupReqPayload)
	if !ok {
		return errors.New("mac: malformed RXTimingSetupReq")
	}
	delay := p.Delay
	if delay == 0 {
		delay = 1
	}
	e.Configuration.RXDelay = &delay
	return e.queue.Push(maccmd.MACCommand{CID: maccmd.RXTimingSetupAns})
}

func (e *Engine) handleTXParamSetupReq(cmd maccmd.MACCommand) error {
	if !e.Region.SupportsTXParamSetup() {
		return errors.New("mac: region does not support TXParamSetupReq")
	}
	if _, ok := cmd.Payload.(*maccmd.TXParamSetupReqPayload); !ok {
		return errors.New("mac: malformed TXParamSetupReq")
	}
	return e.queue.Push(maccmd.MACCommand{CID: maccmd.TXParamSetupAns})
}

func (e *Engine) handleDLChannelReq(cmd maccmd.MACCommand) error {
	p, ok := cmd.Payload.(*maccmd.DLChannelReqPayload)
	if !ok {
		return errors.New("mac: malformed DLChannelReq")
	}

	ans := maccmd.DLChannelAnsPayload{
		UplinkFrequencyExists: e.ChannelPlan.CheckUplinkFrequencyExists(int(p.ChIndex)),
		ChannelFrequencyOK:    p.Freq >= e.Region.MinFrequency() && p.Freq <= e.Region.MaxFrequency(),
	}
	if ans.UplinkFrequencyExists && ans.ChannelFrequencyOK {
		if err := e.ChannelPlan.HandleDLChannelReq(*p); err != nil {
			ans.ChannelFrequencyOK = false
		}
	}

	return e.queue.Push(maccmd.MACCommand{CID: maccmd.DLChannelAns, Payload: &ans})
}
