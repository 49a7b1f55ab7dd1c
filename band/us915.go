package band

import "fmt"

// us915Region implements Region for the US902-928 ISM band: a fixed
// channel plan of 64 125 kHz + 8 500 kHz uplink channels and 8 500 kHz
// downlink channels. Grounded on original_source's mac::region::us915
// module, completed where the original left todo!() placeholders (no
// mandatory-frequency list, no RX1 data-rate table, no ModifyDBm range
// beyond TXPower 0) per SPEC_FULL.md's directive to implement the real
// Regional Parameters formulas rather than carry the placeholders
// forward.
type us915Region struct{}

func newUS915() Region { return us915Region{} }

var us915DataRates = map[uint8]DataRate{
	0:  {Modulation: "LORA", SpreadFactor: 10, Bandwidth: 125},
	1:  {Modulation: "LORA", SpreadFactor: 9, Bandwidth: 125},
	2:  {Modulation: "LORA", SpreadFactor: 8, Bandwidth: 125},
	3:  {Modulation: "LORA", SpreadFactor: 7, Bandwidth: 125},
	4:  {Modulation: "LORA", SpreadFactor: 8, Bandwidth: 500},
	8:  {Modulation: "LORA", SpreadFactor: 12, Bandwidth: 500},
	9:  {Modulation: "LORA", SpreadFactor: 11, Bandwidth: 500},
	10: {Modulation: "LORA", SpreadFactor: 10, Bandwidth: 500},
	11: {Modulation: "LORA", SpreadFactor: 9, Bandwidth: 500},
	12: {Modulation: "LORA", SpreadFactor: 8, Bandwidth: 500},
	13: {Modulation: "LORA", SpreadFactor: 7, Bandwidth: 500},
}

func (us915Region) Name() Name { return US915 }

// DefaultChannels reports the full 72-channel table as enabled, per
// original_source's default_channels(); a network narrows this with
// LinkADRReq once it has heard from the device.
func (us915Region) DefaultChannels() int { return 72 }

func (us915Region) MandatoryFrequency(index int, _ bool) uint32 {
	ch, _ := FixedChannelList915(index)
	return ch.ULFrequency
}

func (us915Region) MandatoryULDataRateRange() (uint8, uint8) { return 0, 3 }

func (us915Region) MinDataRate() uint8     { return 0 }
func (us915Region) MaxDataRate() uint8     { return 13 }
func (us915Region) DefaultDataRate() uint8 { return 0 }

func (us915Region) DataRate(dr uint8) (DataRate, error) {
	d, ok := us915DataRates[dr]
	if !ok {
		return DataRate{}, fmt.Errorf("band: data-rate %d is not supported by US915", dr)
	}
	return d, nil
}

func (us915Region) DefaultRX2Frequency() uint32 { return 923300000 }
func (us915Region) DefaultRX2DataRate() uint8   { return 8 }
func (us915Region) DefaultRX1DROffset() uint8   { return 0 }

// GetRX1DataRate follows original_source's get_receive_window table:
// each uplink data rate anchors an RX1 downlink data rate that is walked
// down by the RX1 offset and clamped to [DR8, DR13].
func (us915Region) GetRX1DataRate(ulDR, rx1DROffset uint8) (uint8, error) {
	var start uint8
	switch ulDR {
	case 0:
		start = 10
	case 1:
		start = 11
	case 2:
		start = 12
	case 3:
		start = 13
	case 4:
		start = 13
	default:
		return 0, fmt.Errorf("band: uplink data-rate %d has no RX1 offset in US915", ulDR)
	}

	if rx1DROffset > start {
		return 8, nil
	}
	nr := start - rx1DROffset
	switch {
	case nr < 8:
		return 8, nil
	case nr > 13:
		return 13, nil
	default:
		return nr, nil
	}
}

func (us915Region) MinFrequency() uint32 { return 902000000 }
func (us915Region) MaxFrequency() uint32 { return 928000000 }
func (us915Region) MaxEIRP() float32     { return 30 }

func (us915Region) SupportsTXParamSetup() bool { return false }

func (us915Region) ModifyDBm(txPower uint8, curDBm float32) (float32, error) {
	switch {
	case txPower <= 10:
		return 30 - float32(txPower)*2, nil
	case txPower == 15:
		return curDBm, nil
	default:
		return 0, fmt.Errorf("band: invalid TXPower %d for US915", txPower)
	}
}

func (us915Region) NextADRDataRate(current uint8) (uint8, bool) {
	if current == 0 || current > 4 {
		return 0, false
	}
	return current - 1, true
}

func (r us915Region) OverrideUplinkDataRate(dr uint8) uint8 {
	if dr <= 4 {
		return dr
	}
	return r.DefaultDataRate()
}

func (r us915Region) NewChannelPlan() ChannelPlan {
	return NewFixedChannelPlan(r)
}
