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

// RunJoin drives eng through repeated join attempts, one per candidate
// channel block per RX1/RX2 window pair, with a random backoff after each
// channel that produced no Join-Accept and no extra delay between whole
// attempts, until eng.Joined() or ctx is canceled. Grounded on
// original_source's join.rs run_scheduler.
func RunJoin(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, rng device.RNG) error {
	for !eng.Joined() {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := eng.CreateJoinRequest()
		if err != nil {
			return err
		}
		buf, err := req.MarshalBinary()
		if err != nil {
			return err
		}

		var blockRandoms [band.NumChannelBlocks]uint32
		for i := range blockRandoms {
			r, err := rng.Uint32()
			if err != nil {
				return err
			}
			blockRandoms[i] = r
		}

		joined, err := attemptJoin(ctx, eng, radio, timer, rng, buf, blockRandoms)
		if err != nil {
			return err
		}
		if joined {
			return nil
		}
	}
	return nil
}

// attemptJoin transmits the already-built join-request on every candidate
// channel block in turn, racing each transmission's RX1 then RX2 window
// for a Join-Accept and backing off a random 1-2s before the next channel.
func attemptJoin(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, rng device.RNG, buf []byte, blockRandoms [band.NumChannelBlocks]uint32) (bool, error) {
	for block := 0; block < band.NumChannelBlocks; block++ {
		txCfg, ch, ulDR, err := eng.CreateTxConfig(band.FrameJoin, blockRandoms, block)
		if err != nil {
			continue
		}

		if err := radio.TX(ctx, txCfg, buf); err != nil {
			log.WithError(err).Warn("scheduler: join request tx failed")
			continue
		}
		timer.Reset()

		accepted, err := raceJoinAcceptWindows(ctx, eng, radio, timer, ch, ulDR)
		if err != nil {
			return false, err
		}
		if accepted {
			return true, nil
		}

		d, err := retransmitDelay(rng)
		if err != nil {
			return false, err
		}
		if err := sleep(ctx, timer, d); err != nil {
			return false, err
		}
	}
	return false, nil
}

func raceJoinAcceptWindows(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, ch *band.Channel, ulDR uint8) (bool, error) {
	if rx1Cfg, err := eng.CreateRx1Config(ulDR, ch); err == nil {
		accepted, err := listenForJoinAccept(ctx, eng, radio, timer, rx1Open, rx1Close, rx1Cfg)
		if err != nil {
			return false, err
		}
		if accepted {
			return true, nil
		}
	}

	rx2Cfg, err := eng.CreateRx2Config()
	if err != nil {
		return false, nil
	}
	return listenForJoinAccept(ctx, eng, radio, timer, rx2Open, rx2Close, rx2Cfg)
}

// listenForJoinAccept waits for open, then listens for a Join-Accept
// until close, handing any decodable, MIC-valid frame to eng. A timed-out
// or rejected window is not an error: the caller falls through to the
// next window or channel.
func listenForJoinAccept(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, open, closeAt time.Duration, cfg device.RfConfig) (bool, error) {
	if err := waitForOpen(ctx, timer, open); err != nil {
		return false, err
	}

	winCtx, cancel := windowContext(ctx, timer, closeAt)
	defer cancel()

	buf := make([]byte, device.MaxPacketSize)
	n, _, err := radio.RX(winCtx, cfg, buf)
	if err != nil {
		return false, nil
	}

	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(buf[:n]); err != nil {
		log.WithError(err).Debug("scheduler: undecodable join-accept candidate")
		return false, nil
	}
	if phy.MHDR.MType != lorawan.MTypeJoinAccept {
		return false, nil
	}
	if err := eng.HandleJoinAccept(&phy); err != nil {
		log.WithError(err).Debug("scheduler: join-accept rejected")
		return false, nil
	}
	return true, nil
}
