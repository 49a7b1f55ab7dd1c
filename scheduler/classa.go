package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/band"
	"github.com/lucasgranberg/lorawan-device/device"
	"github.com/lucasgranberg/lorawan-device/mac"
)

// RunClassA drives one full Class A duty cycle: join if necessary, pull
// the next outbound packet from queue, transmit it, and race its RX1/RX2
// windows for a downlink. A confirmed uplink that gets no downlink in
// either window after exhausting Configuration.NumberOfTransmissions
// attempts fails with KindNoResponse; an unconfirmed uplink that gets no
// downlink simply completes with a nil payload. Grounded on
// original_source's class_a.rs run_scheduler.
//
// RunClassA processes exactly one packet and returns; a caller runs it in
// a loop to keep the device alive for its lifetime.
func RunClassA(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, rng device.RNG, queue device.PacketQueue) ([]byte, error) {
	if !eng.Joined() {
		if err := RunJoin(ctx, eng, radio, timer, rng); err != nil {
			return nil, err
		}
	}

	pkt, err := queue.Next(ctx)
	if err != nil {
		return nil, err
	}

	var attempts uint8 = 1
	if pkt.ConfirmUplink {
		attempts = eng.Configuration.NumberOfTransmissions
		if attempts == 0 {
			attempts = 1
		}
	}

	for attempt := uint8(0); attempt < attempts; attempt++ {
		phy, _, err := eng.PrepareUplink(pkt)
		if err != nil {
			return nil, err
		}
		buf, err := phy.MarshalBinary()
		if err != nil {
			return nil, err
		}

		var blockRandoms [band.NumChannelBlocks]uint32
		for i := range blockRandoms {
			r, err := rng.Uint32()
			if err != nil {
				return nil, err
			}
			blockRandoms[i] = r
		}

		sent, received, payload, err := transmitAndListen(ctx, eng, radio, timer, buf, blockRandoms)
		if err != nil {
			return nil, err
		}
		// HandleDownlink already advances FCntUp for a received downlink
		// (an uplink's counter turns over on its response, not on send);
		// ConfirmTransmitted only covers the case a transmitted uplink
		// gets no downlink back at all, so the counter still advances for
		// the next frame.
		if sent && !received {
			eng.ConfirmTransmitted()
		}
		if received || !pkt.ConfirmUplink {
			return payload, nil
		}

		if attempt+1 < attempts {
			d, err := retransmitDelay(rng)
			if err != nil {
				return nil, err
			}
			if err := sleep(ctx, timer, d); err != nil {
				return nil, err
			}
		}
	}

	return nil, &lorawan.Error{Kind: lorawan.KindNoResponse}
}

// transmitAndListen sends buf on the first channel the channel plan
// offers and races its RX1/RX2 windows for a downlink. sent reports
// whether the radio accepted the transmission (so the caller knows
// whether to advance the frame counter even if no downlink arrived);
// received reports whether a MIC-valid downlink was handled, regardless
// of whether it carried an application payload.
func transmitAndListen(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, buf []byte, blockRandoms [band.NumChannelBlocks]uint32) (sent, received bool, payload []byte, err error) {
	var ch *band.Channel
	var ulDR uint8
	var txCfg device.TxConfig

	for block := 0; block < band.NumChannelBlocks; block++ {
		var cfgErr error
		txCfg, ch, ulDR, cfgErr = eng.CreateTxConfig(band.FrameData, blockRandoms, block)
		if cfgErr == nil {
			break
		}
	}
	if ch == nil {
		return false, false, nil, &lorawan.Error{Kind: lorawan.KindNoValidChannelFound}
	}

	if err := radio.TX(ctx, txCfg, buf); err != nil {
		return false, false, nil, err
	}
	timer.Reset()

	received, payload, herr := raceDownlinkWindows(ctx, eng, radio, timer, ch, ulDR)
	return true, received, payload, herr
}

// raceDownlinkWindows opens RX1, then RX2 if RX1 produced nothing, and
// hands any MIC-valid data frame received to eng.HandleDownlink.
func raceDownlinkWindows(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, ch *band.Channel, ulDR uint8) (bool, []byte, error) {
	if rx1Cfg, err := eng.CreateRx1Config(ulDR, ch); err == nil {
		payload, ok, err := listenForDownlink(ctx, eng, radio, timer, rx1Open, rx1Close, rx1Cfg)
		if err != nil {
			return false, nil, err
		}
		if ok {
			return true, payload, nil
		}
	}

	rx2Cfg, err := eng.CreateRx2Config()
	if err != nil {
		return false, nil, nil
	}
	payload, ok, err := listenForDownlink(ctx, eng, radio, timer, rx2Open, rx2Close, rx2Cfg)
	if err != nil {
		return false, nil, err
	}
	return ok, payload, nil
}

func listenForDownlink(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, open, closeAt time.Duration, cfg device.RfConfig) (payload []byte, ok bool, err error) {
	if err := waitForOpen(ctx, timer, open); err != nil {
		return nil, false, err
	}

	winCtx, cancel := windowContext(ctx, timer, closeAt)
	defer cancel()

	buf := make([]byte, device.MaxPacketSize)
	n, _, rerr := radio.RX(winCtx, cfg, buf)
	if rerr != nil {
		return nil, false, nil
	}

	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(buf[:n]); err != nil {
		log.WithError(err).Debug("scheduler: undecodable downlink candidate")
		return nil, false, nil
	}
	if !isDataDownlink(phy.MHDR.MType) {
		return nil, false, nil
	}

	payload, err = eng.HandleDownlink(&phy)
	if err != nil {
		log.WithError(err).Debug("scheduler: downlink rejected")
		return nil, false, nil
	}
	return payload, true, nil
}

func isDataDownlink(mt lorawan.MType) bool {
	return mt == lorawan.MTypeUnconfirmedDataDown || mt == lorawan.MTypeConfirmedDataDown
}
