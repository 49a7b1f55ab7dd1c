package band

import (
	"errors"

	"github.com/lucasgranberg/lorawan-device/maccmd"
)

// ApplyChannelMaskControl mutates mask in place per a received LinkADRReq's
// ChMask/ChMaskCntl pair. Grounded on original_source's
// channel_plan/dynamic.rs handle_channel_mask: ChMaskCntl 0-4 each address
// one 16-channel block of the mask directly, 5 addresses a 9-channel
// remainder block (the interpretation this module applies uniformly
// across regions per SPEC_FULL.md's Open Question decision, absent any
// region-specific text), 6 means "enable every channel", and 7 is
// reserved/invalid.
func ApplyChannelMaskControl(mask *[MaxChannels]bool, chMask maccmd.ChMask, chMaskCntl uint8) error {
	switch {
	case chMaskCntl <= 4:
		base := int(chMaskCntl) * ChannelsPerMaskBlock
		for i := 0; i < ChannelsPerMaskBlock; i++ {
			if base+i >= MaxChannels {
				break
			}
			mask[base+i] = chMask[i]
		}
		return nil
	case chMaskCntl == 5:
		base := int(chMaskCntl) * ChannelsPerMaskBlock
		for i := 0; i < 9; i++ {
			if base+i >= MaxChannels {
				break
			}
			mask[base+i] = chMask[i]
		}
		return nil
	case chMaskCntl == 6:
		for i := range mask {
			mask[i] = true
		}
		return nil
	default:
		return errors.New("band: invalid ChMaskCntl")
	}
}
