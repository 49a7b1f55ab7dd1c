/*

Package device declares the collaborator contracts a caller must implement
to drive the MAC engine in package mac: a radio transceiver, a timer, a
random number source, non-volatile storage for the DevNonce and
configuration overrides across power cycles, and an uplink/downlink packet
queue decoupling the protocol
loop from the application task.

Grounded on original_source's device module (device/radio, device/timer,
device/rng, device/non_volatile_store, device/packet_queue,
device/packet_buffer), adapted from Rust's no_std const-generic buffers
and per-call associated-type futures to Go slices and
context.Context-cancelable blocking calls.

*/
package device

import (
	"context"
	"time"
)

// Bandwidth is the channel bandwidth of a LoRa transmission.
type Bandwidth int

// Supported LoRa channel bandwidths.
const (
	Bandwidth125kHz Bandwidth = iota
	Bandwidth250kHz
	Bandwidth500kHz
)

// CodingRate is the forward error correction rate of a LoRa transmission.
type CodingRate int

// Supported LoRa coding rates.
const (
	CodingRate4_5 CodingRate = iota
	CodingRate4_6
	CodingRate4_7
	CodingRate4_8
)

// DataRate is a fully resolved over-the-air data rate, as produced by
// band.Region.DataRate for a given DR index.
type DataRate struct {
	FSK             bool
	SpreadingFactor int
	Bandwidth       Bandwidth
	BitRate         int
}

// RfConfig configures a radio for a single transmit or receive operation.
type RfConfig struct {
	Frequency  uint32
	CodingRate CodingRate
	DataRate   DataRate
}

// TxConfig configures a radio transmission: RF parameters plus output
// power in dBm.
type TxConfig struct {
	Power int8
	RF    RfConfig
}

// RxQuality reports the signal quality of a received frame.
type RxQuality struct {
	RSSI int16
	SNR  int8
}

// Radio is the asynchronous transceiver the MAC engine and schedulers
// transmit and receive through. Implementations should honor ctx
// cancellation so a scheduler can abandon an RX window at its close time
// without blocking on hardware indefinitely.
type Radio interface {
	// TX transmits buf under cfg and returns once the radio reports the
	// transmission complete.
	TX(ctx context.Context, cfg TxConfig, buf []byte) error

	// RX listens under cfg, writing a received frame into buf and
	// returning its length and quality. It returns ctx.Err() if ctx is
	// canceled before a frame arrives.
	RX(ctx context.Context, cfg RfConfig, buf []byte) (int, RxQuality, error)
}

// Timer is a resettable, monotonic source of after-duration channels,
// used by the schedulers to open and close RX windows relative to the
// end of a transmission.
type Timer interface {
	// Reset restarts the timer's reference point at the current time.
	Reset()

	// After returns a channel that receives once when d has elapsed
	// since the last Reset.
	After(d time.Duration) <-chan struct{}
}

// RNG is a source of randomness for join-channel and ADR back-off
// selection.
type RNG interface {
	Uint32() (uint32, error)
}

// NonVolatileStore persists and restores an opaque page of encoded
// device state (DevNonce and configuration overrides) across a power
// cycle. The page's structure and any
// wrapping applied to it before Save is mac.Storable's concern, not
// this interface's — the collaborator only ever sees bytes. Grounded on
// original_source's non_volatile_store.rs NonVolatileStore trait,
// adapted from a typed Storable argument to an opaque page so the
// key-wrap step (mac/store.go) sits entirely on this module's side of
// the boundary.
type NonVolatileStore interface {
	Save(page []byte) error
	Load() ([]byte, error)
}

// MaxPacketSize is the largest payload a Packet may carry, matching
// original_source's packet_queue::PACKET_SIZE.
const MaxPacketSize = 256

// Packet is a unit of application data exchanged with the MAC engine: an
// uplink payload queued by the application, or a downlink payload
// delivered to it. ConfirmUplink requests a confirmed uplink frame.
type Packet struct {
	Payload       []byte
	FPort         uint8
	ConfirmUplink bool
}

// PacketQueue decouples the application task from the MAC engine's tight
// RX-window timing, matching original_source's packet_queue.rs rationale:
// the underlying implementation can be a channel, a pub/sub bus, or
// anything else that fits the caller's concurrency model.
type PacketQueue interface {
	Push(ctx context.Context, p Packet) error
	Next(ctx context.Context) (Packet, error)
	Available() bool
}
