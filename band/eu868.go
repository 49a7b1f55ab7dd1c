package band

import "fmt"

// eu868Region implements Region for the EU863-870 ISM band: a dynamic
// channel plan with three mandatory join channels. Grounded on
// original_source's mac::region::eu868 module.
type eu868Region struct{}

func newEU868() Region { return eu868Region{} }

var eu868JoinChannels = [3]uint32{868100000, 868300000, 868500000}

var eu868DataRates = map[uint8]DataRate{
	0: {Modulation: "LORA", SpreadFactor: 12, Bandwidth: 125},
	1: {Modulation: "LORA", SpreadFactor: 11, Bandwidth: 125},
	2: {Modulation: "LORA", SpreadFactor: 10, Bandwidth: 125},
	3: {Modulation: "LORA", SpreadFactor: 9, Bandwidth: 125},
	4: {Modulation: "LORA", SpreadFactor: 8, Bandwidth: 125},
	5: {Modulation: "LORA", SpreadFactor: 7, Bandwidth: 125},
	6: {Modulation: "LORA", SpreadFactor: 7, Bandwidth: 250},
	7: {Modulation: "FSK", BitRate: 50000},
}

// eu868RX1DRMatrix[ulDR][rx1DROffset] gives the RX1 data rate, for
// ulDR/offset in 0..5. Grounded on original_source's dl_dr_matrix.
var eu868RX1DRMatrix = [6][6]uint8{
	{0, 0, 0, 0, 0, 0},
	{1, 0, 0, 0, 0, 0},
	{2, 1, 0, 0, 0, 0},
	{3, 2, 1, 0, 0, 0},
	{4, 3, 2, 1, 0, 0},
	{5, 4, 3, 2, 1, 0},
}

func (eu868Region) Name() Name { return EU868 }

func (eu868Region) DefaultChannels() int { return len(eu868JoinChannels) }

func (eu868Region) MandatoryFrequency(index int, _ bool) uint32 {
	return eu868JoinChannels[index]
}

func (eu868Region) MandatoryULDataRateRange() (uint8, uint8) { return 0, 5 }

func (eu868Region) MinDataRate() uint8     { return 0 }
func (eu868Region) MaxDataRate() uint8     { return 7 }
func (eu868Region) DefaultDataRate() uint8 { return 0 }

func (eu868Region) DataRate(dr uint8) (DataRate, error) {
	d, ok := eu868DataRates[dr]
	if !ok {
		return DataRate{}, fmt.Errorf("band: data-rate %d is not supported by EU868", dr)
	}
	return d, nil
}

func (eu868Region) DefaultRX2Frequency() uint32 { return 869525000 }
func (eu868Region) DefaultRX2DataRate() uint8   { return 0 }
func (eu868Region) DefaultRX1DROffset() uint8   { return 0 }

func (eu868Region) GetRX1DataRate(ulDR, rx1DROffset uint8) (uint8, error) {
	if ulDR > 5 {
		return 0, fmt.Errorf("band: uplink data-rate %d has no RX1 offset in EU868", ulDR)
	}
	if rx1DROffset > 5 {
		return 0, fmt.Errorf("band: RX1 data-rate offset %d is out of range for EU868", rx1DROffset)
	}
	return eu868RX1DRMatrix[ulDR][rx1DROffset], nil
}

func (eu868Region) MinFrequency() uint32 { return 863000000 }
func (eu868Region) MaxFrequency() uint32 { return 870000000 }
func (eu868Region) MaxEIRP() float32     { return 16 }

func (eu868Region) SupportsTXParamSetup() bool { return false }

func (eu868Region) ModifyDBm(txPower uint8, curDBm float32) (float32, error) {
	switch {
	case txPower <= 7:
		return 16 - float32(txPower)*2, nil
	case txPower == 15:
		return curDBm, nil
	default:
		return 0, fmt.Errorf("band: invalid TXPower %d for EU868", txPower)
	}
}

func (eu868Region) NextADRDataRate(current uint8) (uint8, bool) {
	if current == 0 {
		return 0, false
	}
	return current - 1, true
}

func (r eu868Region) OverrideUplinkDataRate(dr uint8) uint8 {
	if dr <= 5 {
		return dr
	}
	return r.DefaultDataRate()
}

func (r eu868Region) NewChannelPlan() ChannelPlan {
	return NewDynamicChannelPlan(r)
}
