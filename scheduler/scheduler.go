/*

Package scheduler drives a mac.Engine through the RX-window timing a real
end-device runs: a join loop, a Class A request/response loop, and a
Class A device augmented with a continuous Class C downlink listen.

Grounded on original_source's mac/scheduler module (join.rs, class_a.rs,
class_ac.rs), whose run_scheduler functions race a transmitted frame's
RX1/RX2 windows against each other using futures::select/pin_mut! over
per-call timer and radio futures. This package keeps that shape — open
RX1, race it against the window's close time, fall through to RX2 only
if RX1 didn't yield a terminal result — but expresses the race with Go's
native idiom instead: a context.Context whose cancellation is wired to
device.Timer via a small watcher goroutine, selected against directly by
device.Radio.RX. The goroutine/channel/ctx.Done() shape mirrors the one
xzhiot-lorawan_server's UDP gateway bridge uses for its own read-loop
cancellation (internal/gateway/udp_packet_forwarder.go).

*/
package scheduler

import (
	"context"
	"time"

	"github.com/lucasgranberg/lorawan-device/device"
)

// RX-window timing relative to the end of a transmission. Join-Accept and
// downlink data frames share the same windows in 1.0.4. Grounded on
// original_source's mod.rs get_rx_windows.
const (
	rx1Open  = 1000 * time.Millisecond
	rx1Close = 1900 * time.Millisecond
	rx2Open  = 2000 * time.Millisecond
	rx2Close = 2900 * time.Millisecond
)

// retransmitDelayBase/Jitter space out repeated join attempts and
// confirmed-uplink retransmissions, grounded on join.rs/class_a.rs's "wait
// a random amount of time between 1 and 2 seconds" backoff.
const (
	retransmitDelayBase   = 1000 * time.Millisecond
	retransmitDelayJitter = 1000
)

// classCSlice bounds a single idle-listening turn in the Class A+C
// scheduler's camp-on-RX2 loop: long enough to catch a Class C downlink,
// short enough that a newly queued uplink is never held up for long.
// Grounded on class_ac.rs's combined scheduler, which interleaves a
// continuous Class C receive with the Class A request/response cycle on
// the same radio.
const classCSlice = 2 * time.Second

func retransmitDelay(rng device.RNG) (time.Duration, error) {
	r, err := rng.Uint32()
	if err != nil {
		return 0, err
	}
	return retransmitDelayBase + time.Duration(r%retransmitDelayJitter)*time.Millisecond, nil
}

func sleep(ctx context.Context, timer device.Timer, d time.Duration) error {
	timer.Reset()
	select {
	case <-timer.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// windowContext derives a child context that cancels when timer fires d
// after its last Reset, so a blocking radio.RX call can be bounded by an
// RX window's close time without the Radio implementation knowing
// anything about windows. The caller must call cancel once done with ctx
// to release the watcher goroutine, whether or not the timer fired.
func windowContext(parent context.Context, timer device.Timer, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-timer.After(d):
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// waitForOpen blocks until timer reaches open (measured from the timer's
// last Reset), or ctx is canceled.
func waitForOpen(ctx context.Context, timer device.Timer, open time.Duration) error {
	select {
	case <-timer.After(open):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
