// Package maccmd implements the MAC command codec: the CID-tagged commands
// carried in FOpts or in an FPort=0 FRMPayload, restricted to the commands
// defined by LoRaWAN 1.0.4.
package maccmd

// CID identifies a MAC command. Each Req/Ans pair shares the same value;
// whether a frame is uplink or downlink disambiguates which one applies.
type CID byte

// MAC commands as specified by the LoRaWAN 1.0.4 regional parameters.
const (
	LinkCheckReq     CID = 0x02
	LinkCheckAns     CID = 0x02
	LinkADRReq       CID = 0x03
	LinkADRAns       CID = 0x03
	DutyCycleReq     CID = 0x04
	DutyCycleAns     CID = 0x04
	RXParamSetupReq  CID = 0x05
	RXParamSetupAns  CID = 0x05
	DevStatusReq     CID = 0x06
	DevStatusAns     CID = 0x06
	NewChannelReq    CID = 0x07
	NewChannelAns    CID = 0x07
	RXTimingSetupReq CID = 0x08
	RXTimingSetupAns CID = 0x08
	TXParamSetupReq  CID = 0x09
	TXParamSetupAns  CID = 0x09
	DLChannelReq     CID = 0x0A
	DLChannelAns     CID = 0x0A
	DeviceTimeReq    CID = 0x0D
	DeviceTimeAns    CID = 0x0D
	// 0x80-0xFF reserved for proprietary network command extensions.
)

func (c CID) String() string {
	switch c {
	case LinkCheckReq:
		return "LinkCheck"
	case LinkADRReq:
		return "LinkADR"
	case DutyCycleReq:
		return "DutyCycle"
	case RXParamSetupReq:
		return "RXParamSetup"
	case DevStatusReq:
		return "DevStatus"
	case NewChannelReq:
		return "NewChannel"
	case RXTimingSetupReq:
		return "RXTimingSetup"
	case TXParamSetupReq:
		return "TXParamSetup"
	case DLChannelReq:
		return "DLChannel"
	case DeviceTimeReq:
		return "DeviceTime"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
