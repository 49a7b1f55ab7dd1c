package band

import (
	"errors"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/maccmd"
)

// FixedChannelList915 generates the US915-style fixed channel at index,
// per the LoRaWAN Regional Parameters US902-928 formula: 64 125 kHz
// uplink channels (DR0-3) followed by 8 500 kHz uplink channels (DR4
// only), each mapped to one of 8 500 kHz downlink channels. Replaces
// original_source's FixedChannelList900 stub, which used placeholder
// arithmetic (see SPEC_FULL.md/DESIGN.md) — this module computes the real
// frequencies so tests exercising it are meaningful.
func FixedChannelList915(index int) (Channel, bool) {
	switch {
	case index >= 0 && index < 64:
		ul := uint32(902300000 + 200000*index)
		return Channel{
			ULFrequency: ul,
			DLFrequency: uint32(923300000 + 600000*(index%8)),
			MinDR:       0,
			MaxDR:       3,
		}, true
	case index >= 64 && index < 72:
		ul := uint32(903000000 + 1600000*(index-64))
		return Channel{
			ULFrequency: ul,
			DLFrequency: uint32(923300000 + 600000*((index-64)%8)),
			MinDR:       4,
			MaxDR:       4,
		}, true
	default:
		return Channel{}, false
	}
}

// FixedChannelPlan is the channel plan of a region whose channels are all
// generated by a fixed formula (US915 and similar); only the enabled-mask
// is mutable state. Grounded on original_source's
// channel_plan/fixed.rs, completed rather than left as todo!() stubs —
// NewChannelReq/DLChannelReq genuinely have no effect in a fixed plan
// (there is no per-channel frequency to reassign), matching the one
// stub the original did implement (handle_dl_channel_req returning
// CommandNotImplementedForRegion).
type FixedChannelPlan struct {
	region Region
	mask   [MaxChannels]bool
}

// NewFixedChannelPlan seeds a plan with region's mandatory channels
// enabled (for US915, all 72: 64 125 kHz + 8 500 kHz channels).
func NewFixedChannelPlan(region Region) *FixedChannelPlan {
	p := &FixedChannelPlan{region: region}
	for i := 0; i < region.DefaultChannels(); i++ {
		p.mask[i] = true
	}
	return p
}

func (p *FixedChannelPlan) Channel(index int) (Channel, bool) {
	return FixedChannelList915(index)
}

func (p *FixedChannelPlan) RandomChannelsFromBlocks(blockRandoms [NumChannelBlocks]uint32, frame Frame) [NumChannelBlocks]*Channel {
	var out [NumChannelBlocks]*Channel

	for i := 0; i < NumChannelBlocks; i++ {
		var candidates []int
		for j := 0; j < ChannelsPerBlock; j++ {
			idx := i*ChannelsPerBlock + j
			if idx >= MaxChannels {
				break
			}
			if _, ok := FixedChannelList915(idx); ok && p.mask[idx] {
				candidates = append(candidates, idx)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		chosen := candidates[blockRandoms[i]%uint32(len(candidates))]
		ch, _ := FixedChannelList915(chosen)
		out[i] = &ch
	}

	return out
}

func (p *FixedChannelPlan) HandleNewChannelReq(maccmd.NewChannelReqPayload) error {
	return errors.New("band: NewChannelReq is not supported on a fixed channel plan")
}

func (p *FixedChannelPlan) HandleDLChannelReq(maccmd.DLChannelReqPayload) error {
	return errors.New("band: DLChannelReq is not supported on a fixed channel plan")
}

func (p *FixedChannelPlan) CheckUplinkFrequencyExists(index int) bool {
	_, ok := FixedChannelList915(index)
	return ok
}

func (p *FixedChannelPlan) ValidateFrequency(freq uint32) error {
	for i := 0; i < 72; i++ {
		ch, _ := FixedChannelList915(i)
		if ch.ULFrequency == freq {
			return nil
		}
	}
	return errors.New("band: unknown frequency")
}

func (p *FixedChannelPlan) ChannelMask() [MaxChannels]bool {
	return p.mask
}

func (p *FixedChannelPlan) SetChannelMask(mask [MaxChannels]bool) {
	p.mask = mask
}

func (p *FixedChannelPlan) HandleChannelMaskReq(chMask maccmd.ChMask, chMaskCntl uint8) error {
	return ApplyChannelMaskControl(&p.mask, chMask, chMaskCntl)
}

// HandleCFList applies a Join-Accept's channel mask (the fixed-plan
// equivalent of LinkADRReq's ChMask/ChMaskCntl, five blocks back to
// back in the 15 byte CFList payload). A CFList of any other type is a
// network/region mismatch, not a malformed payload, so it is reported as
// KindInvalidCfListType for the caller to drop rather than fail the
// join on.
func (p *FixedChannelPlan) HandleCFList(cfList lorawan.CFList) error {
	if cfList.Type != lorawan.CFListChannelMask {
		return &lorawan.Error{Kind: lorawan.KindInvalidCfListType, Msg: "fixed channel plan expects CFListChannelMask"}
	}

	var mask [MaxChannels]bool
	for block := 0; block < NumChMaskBlocks; block++ {
		off := block * 2
		if off+2 > len(cfList.Payload) {
			break
		}
		var cm maccmd.ChMask
		if err := cm.UnmarshalBinary(cfList.Payload[off : off+2]); err != nil {
			return err
		}
		if err := ApplyChannelMaskControl(&mask, cm, uint8(block)); err != nil {
			return err
		}
	}
	p.mask = mask
	return nil
}
