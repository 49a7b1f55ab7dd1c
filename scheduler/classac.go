package scheduler

import (
	"context"

	log "github.com/sirupsen/logrus"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/device"
	"github.com/lucasgranberg/lorawan-device/mac"
)

// RunClassAC combines Class A's request/response uplink cycle with a
// continuous Class C downlink listen on the same radio: whenever the
// outbound queue is empty it camps on RX2 in classCSlice-long turns, and
// whenever a packet is ready when a turn ends it runs one Class A cycle
// before camping again. Received payloads, from either Class A responses or the
// idle Class C listen, are delivered on downlinks. Runs until ctx is
// canceled or an unrecoverable error occurs. Grounded on
// original_source's class_ac.rs run_scheduler.
func RunClassAC(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer, rng device.RNG, queue device.PacketQueue, downlinks chan<- []byte) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !eng.Joined() {
			if err := RunJoin(ctx, eng, radio, timer, rng); err != nil {
				return err
			}
		}

		var payload []byte
		if queue.Available() {
			p, err := RunClassA(ctx, eng, radio, timer, rng, queue)
			if err != nil {
				return err
			}
			payload = p
		} else {
			p, err := classCListenOnce(ctx, eng, radio, timer)
			if err != nil {
				return err
			}
			payload = p
		}

		if payload == nil {
			continue
		}
		select {
		case downlinks <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// classCListenOnce listens on the RX2 channel for one classCSlice turn,
// handing any MIC-valid data frame received to eng.HandleDownlink. A
// timed-out slice is not an error: the caller re-checks the outbound
// queue and tries again.
func classCListenOnce(ctx context.Context, eng *mac.Engine, radio device.Radio, timer device.Timer) ([]byte, error) {
	cfg, err := eng.CreateRx2Config()
	if err != nil {
		return nil, err
	}

	timer.Reset()
	sliceCtx, cancel := windowContext(ctx, timer, classCSlice)
	defer cancel()

	buf := make([]byte, device.MaxPacketSize)
	n, _, err := radio.RX(sliceCtx, cfg, buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, nil
	}

	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(buf[:n]); err != nil {
		log.WithError(err).Debug("scheduler: undecodable class c candidate")
		return nil, nil
	}
	if !isDataDownlink(phy.MHDR.MType) {
		return nil, nil
	}

	payload, err := eng.HandleDownlink(&phy)
	if err != nil {
		log.WithError(err).Debug("scheduler: class c downlink rejected")
		return nil, nil
	}
	return payload, nil
}
