// Package band provides per-region channel-plan and data-rate knowledge
// for a LoRaWAN 1.0.4 end-device MAC engine. Unlike a network-server band
// package, it never allocates channels or schedules downlinks for a fleet
// of devices; it only answers the questions a single device's MAC engine
// needs to ask of its own region: which data rate does an index mean,
// what is RX1's offset table, which channels exist by default, and how
// does a received LinkADRReq/NewChannelReq/DlChannelReq mutate this
// device's own channel plan.
package band

import (
	"fmt"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/maccmd"
)

// Frame identifies which kind of uplink a channel selection is for. The
// join-channel spreading algorithm special-cases the first channel block
// for a join-request (original_source's get_random_channels_from_blocks).
type Frame int

// Frame kinds.
const (
	FrameData Frame = iota
	FrameJoin
)

// Channel-plan geometry. MaxChannels is partitioned two ways that coexist:
// NumChMaskBlocks blocks of ChannelsPerMaskBlock (5x16=80) drive the
// LinkADRReq ChMaskCntl/ChMask semantics; NumChannelBlocks blocks of
// ChannelsPerBlock (10x8=80) drive join-channel spreading so a device
// cycles through more distinct candidate frequencies per join attempt.
const (
	MaxChannels          = 80
	NumChMaskBlocks      = 5
	ChannelsPerMaskBlock = 16
	NumChannelBlocks     = 10
	ChannelsPerBlock     = 8
)

// DataRate describes one entry of a region's data-rate table.
type DataRate struct {
	Modulation   string // "LORA" or "FSK"
	SpreadFactor int    // used for LoRa
	Bandwidth    int    // kHz, used for LoRa
	BitRate      int    // bits per second, used for FSK
}

// Name identifies a supported region.
type Name string

// Supported regions. Only the two regions this module's pack carries a
// teacher implementation for are wired; adding a region means adding a
// Region implementation and a case below, nothing else.
const (
	EU868 Name = "EU868"
	US915 Name = "US915"
)

// Channel describes one entry of a device's channel plan: the frequency
// (or frequency pair, for a dynamic plan) it transmits and listens on,
// and the data-rate range it accepts.
type Channel struct {
	ULFrequency uint32 // Hz
	DLFrequency uint32 // Hz
	MinDR       uint8
	MaxDR       uint8
}

// Region is the per-region contract a MAC engine drives. Grounded on the
// Rust original's mac::region::Region trait, narrowed to what a 1.0.4
// end-device needs directly; NS-only concerns (TX-power-offset fleet
// bookkeeping, per-protocol-version max-payload tables) are dropped.
type Region interface {
	Name() Name

	// DefaultChannels returns how many mandatory channels this region
	// activates a device with before any Join-Accept CFList or
	// NewChannelReq is applied.
	DefaultChannels() int
	MandatoryFrequency(index int, uplink bool) uint32
	MandatoryULDataRateRange() (min, max uint8)

	MinDataRate() uint8
	MaxDataRate() uint8
	DefaultDataRate() uint8
	DataRate(dr uint8) (DataRate, error)

	DefaultRX2Frequency() uint32
	DefaultRX2DataRate() uint8
	DefaultRX1DROffset() uint8
	GetRX1DataRate(ulDR, rx1DROffset uint8) (uint8, error)

	MinFrequency() uint32
	MaxFrequency() uint32
	MaxEIRP() float32
	SupportsTXParamSetup() bool

	// ModifyDBm converts a LinkADRReq TXPower index into a concrete dBm
	// value, 15 meaning "leave the current value unchanged" (curDBm is
	// returned as-is in that case).
	ModifyDBm(txPower uint8, curDBm float32) (float32, error)

	// NextADRDataRate returns the next lower data rate a network-driven
	// ADR back-off would fall to, or ok=false at the bottom of the table.
	NextADRDataRate(current uint8) (next uint8, ok bool)

	// OverrideUplinkDataRate clamps dr back to DefaultDataRate() if it
	// falls outside this region's uplink data-rate range, rather than
	// erroring (original_source's override_ul_data_rate_if_necessary).
	OverrideUplinkDataRate(dr uint8) uint8

	// NewChannelPlan returns a freshly initialized channel plan seeded
	// with this region's mandatory channels.
	NewChannelPlan() ChannelPlan
}

// ChannelPlan tracks a single device's channel table and enabled-channel
// mask, and applies the downlink MAC commands that mutate it. Dynamic
// regions (EU868) and fixed regions (US915) satisfy it with different
// underlying layouts; the mac engine only ever talks to this interface.
type ChannelPlan interface {
	// Channel returns the channel at index, or ok=false if it does not
	// exist (never configured, for a dynamic plan; out of range, for a
	// fixed plan).
	Channel(index int) (ch Channel, ok bool)

	// RandomChannelsFromBlocks picks one channel per NumChannelBlocks
	// block using the supplied per-block random draws, for join-request
	// or data-uplink channel spreading.
	RandomChannelsFromBlocks(blockRandoms [NumChannelBlocks]uint32, frame Frame) [NumChannelBlocks]*Channel

	HandleNewChannelReq(p maccmd.NewChannelReqPayload) error
	HandleDLChannelReq(p maccmd.DLChannelReqPayload) error
	CheckUplinkFrequencyExists(index int) bool
	ValidateFrequency(freq uint32) error

	ChannelMask() [MaxChannels]bool
	SetChannelMask(mask [MaxChannels]bool)
	HandleChannelMaskReq(chMask maccmd.ChMask, chMaskCntl uint8) error

	// HandleCFList applies a Join-Accept's CFList to this plan. Only
	// CFListChannel is meaningful for a dynamic plan (extra frequencies);
	// a fixed plan treats CFListChannelMask the same way a LinkADRReq
	// ChMask does, five 2 byte masks back to back.
	HandleCFList(cfList lorawan.CFList) error
}

// GetRegion returns the Region implementation for name.
func GetRegion(name Name) (Region, error) {
	switch name {
	case EU868:
		return newEU868(), nil
	case US915:
		return newUS915(), nil
	default:
		return nil, fmt.Errorf("band: region %q is undefined", name)
	}
}
