package maccmd

import (
	"encoding/binary"
	"errors"
	"fmt"

	lorawan "github.com/lucasgranberg/lorawan-device"
)

// LinkCheckAnsPayload carries the network's link quality report.
type LinkCheckAnsPayload struct {
	Margin uint8
	GwCnt  uint8
}

func (p LinkCheckAnsPayload) MarshalBinary() ([]byte, error) {
	return []byte{p.Margin, p.GwCnt}, nil
}

func (p *LinkCheckAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return errors.New("maccmd: 2 bytes of data are expected")
	}
	p.Margin = data[0]
	p.GwCnt = data[1]
	return nil
}

// ChMask enables or disables the uplink channels. Index 0 = channel 1.
type ChMask [16]bool

func (m ChMask) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2)
	for i := uint8(0); i < 16; i++ {
		if m[i] {
			b[i/8] |= 1 << (i % 8)
		}
	}
	return b, nil
}

func (m *ChMask) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return errors.New("maccmd: 2 bytes of data are expected")
	}
	for i, b := range data {
		for j := uint8(0); j < 8; j++ {
			if b&(1<<j) > 0 {
				m[uint8(i)*8+j] = true
			}
		}
	}
	return nil
}

// Redundancy carries the channel mask control and the number of
// retransmissions requested by LinkADRReq.
type Redundancy struct {
	ChMaskCntl uint8 // 3 bits
	NbRep      uint8 // 4 bits
}

func (r Redundancy) MarshalBinary() ([]byte, error) {
	if r.NbRep > 15 {
		return nil, errors.New("maccmd: max value of NbRep is 15")
	}
	if r.ChMaskCntl > 7 {
		return nil, errors.New("maccmd: max value of ChMaskCntl is 7")
	}
	return []byte{r.NbRep | (r.ChMaskCntl << 4)}, nil
}

func (r *Redundancy) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	r.NbRep = data[0] & 0x0f
	r.ChMaskCntl = (data[0] >> 4) & 0x07
	return nil
}

// LinkADRReqPayload requests an ADR parameter change.
type LinkADRReqPayload struct {
	DataRate   uint8 // 4 bits
	TXPower    uint8 // 4 bits
	ChMask     ChMask
	Redundancy Redundancy
}

func (p LinkADRReqPayload) MarshalBinary() ([]byte, error) {
	if p.DataRate > 15 {
		return nil, errors.New("maccmd: max value of DataRate is 15")
	}
	if p.TXPower > 15 {
		return nil, errors.New("maccmd: max value of TXPower is 15")
	}
	cm, err := p.ChMask.MarshalBinary()
	if err != nil {
		return nil, err
	}
	r, err := p.Redundancy.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, 4)
	b = append(b, p.TXPower|(p.DataRate<<4))
	b = append(b, cm...)
	b = append(b, r...)
	return b, nil
}

func (p *LinkADRReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return errors.New("maccmd: 4 bytes of data are expected")
	}
	p.DataRate = (data[0] >> 4) & 0x0f
	p.TXPower = data[0] & 0x0f
	if err := p.ChMask.UnmarshalBinary(data[1:3]); err != nil {
		return err
	}
	return p.Redundancy.UnmarshalBinary(data[3:4])
}

// LinkADRAnsPayload answers a LinkADRReq.
type LinkADRAnsPayload struct {
	ChannelMaskACK bool
	DataRateACK    bool
	PowerACK       bool
}

func (p LinkADRAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	if p.ChannelMaskACK {
		b |= 1 << 0
	}
	if p.DataRateACK {
		b |= 1 << 1
	}
	if p.PowerACK {
		b |= 1 << 2
	}
	return []byte{b}, nil
}

func (p *LinkADRAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	p.ChannelMaskACK = data[0]&(1<<0) > 0
	p.DataRateACK = data[0]&(1<<1) > 0
	p.PowerACK = data[0]&(1<<2) > 0
	return nil
}

// DutyCycleReqPayload limits the aggregated duty-cycle. MaxDCycle in
// [0,15], or 255 meaning no duty-cycle limitation.
type DutyCycleReqPayload struct {
	MaxDCycle uint8
}

func (p DutyCycleReqPayload) MarshalBinary() ([]byte, error) {
	if p.MaxDCycle > 15 && p.MaxDCycle < 255 {
		return nil, errors.New("maccmd: only a MaxDCycle value of 0-15 or 255 is allowed")
	}
	return []byte{p.MaxDCycle}, nil
}

func (p *DutyCycleReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	p.MaxDCycle = data[0]
	return nil
}

// RXParamSetupReqPayload reconfigures the RX1/RX2 parameters.
type RXParamSetupReqPayload struct {
	Frequency  uint32 // Hz, multiple of 100
	DLSettings lorawan.DLSettings
}

func (p RXParamSetupReqPayload) MarshalBinary() ([]byte, error) {
	if p.Frequency/100 >= 1<<24 {
		return nil, errors.New("maccmd: max value of Frequency is 2^24-1 * 100Hz")
	}
	if p.Frequency%100 != 0 {
		return nil, errors.New("maccmd: Frequency must be a multiple of 100")
	}
	s, err := p.DLSettings.MarshalBinary()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 5)
	b[0] = s[0]
	binary.LittleEndian.PutUint32(b[1:5], p.Frequency/100)
	return b[0:4], nil
}

func (p *RXParamSetupReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return errors.New("maccmd: 4 bytes of data are expected")
	}
	if err := p.DLSettings.UnmarshalBinary(data[0:1]); err != nil {
		return err
	}
	b := append(append([]byte{}, data...), 0)
	p.Frequency = binary.LittleEndian.Uint32(b[1:5]) * 100
	return nil
}

// RXParamSetupAnsPayload answers a RXParamSetupReq.
type RXParamSetupAnsPayload struct {
	ChannelACK     bool
	RX2DataRateACK bool
	RX1DROffsetACK bool
}

func (p RXParamSetupAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	if p.ChannelACK {
		b |= 1 << 0
	}
	if p.RX2DataRateACK {
		b |= 1 << 1
	}
	if p.RX1DROffsetACK {
		b |= 1 << 2
	}
	return []byte{b}, nil
}

func (p *RXParamSetupAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	p.ChannelACK = data[0]&(1<<0) > 0
	p.RX2DataRateACK = data[0]&(1<<1) > 0
	p.RX1DROffsetACK = data[0]&(1<<2) > 0
	return nil
}

// DevStatusAnsPayload reports battery level and SNR margin.
type DevStatusAnsPayload struct {
	Battery uint8
	Margin  int8 // -32..31
}

func (p DevStatusAnsPayload) MarshalBinary() ([]byte, error) {
	if p.Margin < -32 || p.Margin > 31 {
		return nil, errors.New("maccmd: Margin must be in range -32..31")
	}
	b := make([]byte, 2)
	b[0] = p.Battery
	if p.Margin < 0 {
		b[1] = uint8(64 + p.Margin)
	} else {
		b[1] = uint8(p.Margin)
	}
	return b, nil
}

func (p *DevStatusAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return errors.New("maccmd: 2 bytes of data are expected")
	}
	p.Battery = data[0]
	if data[1] > 31 {
		p.Margin = int8(data[1]) - 64
	} else {
		p.Margin = int8(data[1])
	}
	return nil
}

// NewChannelReqPayload creates or modifies a channel definition.
type NewChannelReqPayload struct {
	ChIndex uint8
	Freq    uint32 // Hz, multiple of 100
	MaxDR   uint8  // 4 bits
	MinDR   uint8  // 4 bits
}

func (p NewChannelReqPayload) MarshalBinary() ([]byte, error) {
	if p.Freq/100 >= 1<<24 {
		return nil, errors.New("maccmd: max value of Freq is 2^24-1 * 100Hz")
	}
	if p.Freq%100 != 0 {
		return nil, errors.New("maccmd: Freq must be a multiple of 100")
	}
	if p.MaxDR > 15 || p.MinDR > 15 {
		return nil, errors.New("maccmd: max value of MaxDR/MinDR is 15")
	}
	b := make([]byte, 5)
	b[0] = p.ChIndex
	binary.LittleEndian.PutUint32(b[1:5], p.Freq/100)
	b[4] = p.MinDR | (p.MaxDR << 4)
	return b, nil
}

func (p *NewChannelReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 5 {
		return errors.New("maccmd: 5 bytes of data are expected")
	}
	p.ChIndex = data[0]
	p.MinDR = data[4] & 0x0f
	p.MaxDR = (data[4] >> 4) & 0x0f
	b := append([]byte{}, data...)
	b[4] = 0
	p.Freq = binary.LittleEndian.Uint32(b[1:5]) * 100
	return nil
}

// NewChannelAnsPayload answers a NewChannelReq.
type NewChannelAnsPayload struct {
	ChannelFrequencyOK bool
	DataRateRangeOK    bool
}

func (p NewChannelAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	if p.ChannelFrequencyOK {
		b |= 1 << 0
	}
	if p.DataRateRangeOK {
		b |= 1 << 1
	}
	return []byte{b}, nil
}

func (p *NewChannelAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	p.ChannelFrequencyOK = data[0]&(1<<0) > 0
	p.DataRateRangeOK = data[0]&(1<<1) > 0
	return nil
}

// RXTimingSetupReqPayload sets the Join-Accept/data-frame RX1 delay.
type RXTimingSetupReqPayload struct {
	Delay uint8 // 0 and 1 both mean 1s, 2 means 2s, ... 15 means 15s
}

func (p RXTimingSetupReqPayload) MarshalBinary() ([]byte, error) {
	if p.Delay > 15 {
		return nil, errors.New("maccmd: max value of Delay is 15")
	}
	return []byte{p.Delay}, nil
}

func (p *RXTimingSetupReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	p.Delay = data[0]
	return nil
}

// DwellTime selects whether a region's 400ms dwell-time limit applies.
type DwellTime int

const (
	DwellTimeNoLimit DwellTime = iota
	DwellTime400ms
)

// TXParamSetupReqPayload sets the dwell-time limits and max EIRP, used by
// regions such as AS923 that regulate duty/dwell time.
type TXParamSetupReqPayload struct {
	DownlinkDwellTime DwellTime
	UplinkDwellTime   DwellTime
	MaxEIRP           float32
}

func (p TXParamSetupReqPayload) MarshalBinary() ([]byte, error) {
	b := lorawan.GetTXParamSetupEIRPIndex(p.MaxEIRP)
	if p.UplinkDwellTime == DwellTime400ms {
		b |= 1 << 4
	}
	if p.DownlinkDwellTime == DwellTime400ms {
		b |= 1 << 5
	}
	return []byte{b}, nil
}

func (p *TXParamSetupReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	if data[0]&(1<<4) > 0 {
		p.UplinkDwellTime = DwellTime400ms
	}
	if data[0]&(1<<5) > 0 {
		p.DownlinkDwellTime = DwellTime400ms
	}
	eirp, err := lorawan.GetTXParamSetupEIRP(data[0] & 0x0f)
	if err != nil {
		return fmt.Errorf("maccmd: %w", err)
	}
	p.MaxEIRP = eirp
	return nil
}

// DLChannelReqPayload sets the RX1 downlink frequency of an existing
// channel, keeping its uplink frequency and data-rate range.
type DLChannelReqPayload struct {
	ChIndex uint8
	Freq    uint32 // Hz, multiple of 100
}

func (p DLChannelReqPayload) MarshalBinary() ([]byte, error) {
	if p.Freq/100 >= 1<<24 {
		return nil, errors.New("maccmd: max value of Freq is 2^24-1 * 100Hz")
	}
	if p.Freq%100 != 0 {
		return nil, errors.New("maccmd: Freq must be a multiple of 100")
	}
	b := make([]byte, 5)
	b[0] = p.ChIndex
	binary.LittleEndian.PutUint32(b[1:5], p.Freq/100)
	return b[0:4], nil
}

func (p *DLChannelReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return errors.New("maccmd: 4 bytes of data are expected")
	}
	p.ChIndex = data[0]
	b := append(append([]byte{}, data[1:]...), 0)
	p.Freq = binary.LittleEndian.Uint32(b) * 100
	return nil
}

// DLChannelAnsPayload answers a DLChannelReq.
type DLChannelAnsPayload struct {
	UplinkFrequencyExists bool
	ChannelFrequencyOK    bool
}

func (p DLChannelAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	if p.ChannelFrequencyOK {
		b |= 1
	}
	if p.UplinkFrequencyExists {
		b |= 1 << 1
	}
	return []byte{b}, nil
}

func (p *DLChannelAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return errors.New("maccmd: 1 byte of data is expected")
	}
	p.ChannelFrequencyOK = data[0]&1 > 0
	p.UplinkFrequencyExists = data[0]&(1<<1) > 0
	return nil
}

// DeviceTimeAnsPayload reports the network's notion of GPS time.
type DeviceTimeAnsPayload struct {
	SecondsSinceEpoch uint32
	FracSecond        uint8 // 1/256th of a second
}

func (p DeviceTimeAnsPayload) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5)
	binary.LittleEndian.PutUint32(b, p.SecondsSinceEpoch)
	b[4] = p.FracSecond
	return b, nil
}

func (p *DeviceTimeAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 5 {
		return errors.New("maccmd: 5 bytes of data are expected")
	}
	p.SecondsSinceEpoch = binary.LittleEndian.Uint32(data[0:4])
	p.FracSecond = data[4]
	return nil
}
