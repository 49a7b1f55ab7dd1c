package band

import (
	"errors"

	lorawan "github.com/lucasgranberg/lorawan-device"
	"github.com/lucasgranberg/lorawan-device/maccmd"
)

// DynamicChannelPlan is the channel plan of a region where every channel
// carries its own frequency (EU868 and similar). Grounded on
// original_source's channel_plan/dynamic.rs DynamicChannelPlan.
type DynamicChannelPlan struct {
	region   Region
	channels [MaxChannels]*Channel
	mask     [MaxChannels]bool
}

// NewDynamicChannelPlan seeds a plan with region's mandatory channels, all
// enabled.
func NewDynamicChannelPlan(region Region) *DynamicChannelPlan {
	p := &DynamicChannelPlan{region: region}
	min, max := region.MandatoryULDataRateRange()
	for i := 0; i < region.DefaultChannels(); i++ {
		p.channels[i] = &Channel{
			ULFrequency: region.MandatoryFrequency(i, true),
			DLFrequency: region.MandatoryFrequency(i, false),
			MinDR:       min,
			MaxDR:       max,
		}
		p.mask[i] = true
	}
	return p
}

func (p *DynamicChannelPlan) Channel(index int) (Channel, bool) {
	if index < 0 || index >= MaxChannels || p.channels[index] == nil {
		return Channel{}, false
	}
	return *p.channels[index], true
}

// RandomChannelsFromBlocks picks one enabled channel per 8-wide block. For
// a join request, block 0 is drawn from every mandatory join channel
// rather than just the enabled ones in the first 8 slots, matching
// original_source's special case (the first block initially holds 3
// join channels, fewer than its 8-wide capacity).
func (p *DynamicChannelPlan) RandomChannelsFromBlocks(blockRandoms [NumChannelBlocks]uint32, frame Frame) [NumChannelBlocks]*Channel {
	var out [NumChannelBlocks]*Channel

	for i := 0; i < NumChannelBlocks; i++ {
		var candidates []int

		if i == 0 && frame == FrameJoin {
			for j := 0; j < p.region.DefaultChannels(); j++ {
				candidates = append(candidates, j)
			}
		} else {
			for j := 0; j < ChannelsPerBlock; j++ {
				idx := i*ChannelsPerBlock + j
				if idx >= MaxChannels {
					break
				}
				if p.channels[idx] != nil && p.mask[idx] {
					candidates = append(candidates, idx)
				}
			}
		}

		if len(candidates) == 0 {
			continue
		}
		chosen := candidates[blockRandoms[i]%uint32(len(candidates))]
		out[i] = p.channels[chosen]
	}

	return out
}

func (p *DynamicChannelPlan) HandleNewChannelReq(req maccmd.NewChannelReqPayload) error {
	if int(req.ChIndex) >= MaxChannels {
		return errors.New("band: invalid channel index")
	}
	p.channels[req.ChIndex] = &Channel{
		ULFrequency: req.Freq,
		DLFrequency: req.Freq,
		MinDR:       req.MinDR,
		MaxDR:       req.MaxDR,
	}
	return nil
}

func (p *DynamicChannelPlan) HandleDLChannelReq(req maccmd.DLChannelReqPayload) error {
	idx := int(req.ChIndex)
	if idx >= MaxChannels || p.channels[idx] == nil {
		return errors.New("band: invalid channel index")
	}
	p.channels[idx].DLFrequency = req.Freq
	return nil
}

func (p *DynamicChannelPlan) CheckUplinkFrequencyExists(index int) bool {
	if index < 0 || index >= MaxChannels {
		return false
	}
	return p.channels[index] != nil
}

func (p *DynamicChannelPlan) ValidateFrequency(freq uint32) error {
	for _, ch := range p.channels {
		if ch != nil && ch.ULFrequency == freq {
			return nil
		}
	}
	return errors.New("band: unknown frequency")
}

func (p *DynamicChannelPlan) ChannelMask() [MaxChannels]bool {
	return p.mask
}

func (p *DynamicChannelPlan) SetChannelMask(mask [MaxChannels]bool) {
	p.mask = mask
}

func (p *DynamicChannelPlan) HandleChannelMaskReq(chMask maccmd.ChMask, chMaskCntl uint8) error {
	return ApplyChannelMaskControl(&p.mask, chMask, chMaskCntl)
}

// HandleCFList appends up to five extra frequencies carried as
// CFListChannel (the only CFList type a dynamic plan understands). A
// CFList of any other type is a network/region mismatch, not a malformed
// payload, so it is reported as KindInvalidCfListType for the caller to
// drop rather than fail the join on.
func (p *DynamicChannelPlan) HandleCFList(cfList lorawan.CFList) error {
	if cfList.Type != lorawan.CFListChannel {
		return &lorawan.Error{Kind: lorawan.KindInvalidCfListType, Msg: "dynamic channel plan expects CFListChannel"}
	}

	min, max := p.region.MandatoryULDataRateRange()
	base := p.region.DefaultChannels()
	for i := 0; i < 5; i++ {
		off := i * 3
		freq := uint32(cfList.Payload[off]) | uint32(cfList.Payload[off+1])<<8 | uint32(cfList.Payload[off+2])<<16
		freq *= 100
		if freq == 0 {
			continue
		}
		idx := base + i
		if idx >= MaxChannels {
			break
		}
		p.channels[idx] = &Channel{
			ULFrequency: freq,
			DLFrequency: freq,
			MinDR:       min,
			MaxDR:       max,
		}
		p.mask[idx] = true
	}
	return nil
}
