package mac

// Configuration holds the device's send/receive parameters: the
// region-default values it started with, overridden in place as
// RXParamSetupReq/RXTimingSetupReq/LinkADRReq are processed. Pointer
// fields follow the teacher's "unset means region default" idiom
// (brocaar/lorawan's MaxPayloadSize/Defaults tables), grounded on
// original_source's mac::types::Configuration.
type Configuration struct {
	MaxDutyCycle          float32
	TXPower               *uint8
	TXDataRate            *uint8
	RX1DataRateOffset     *uint8
	RXDelay               *uint8
	RX2DataRate           *uint8
	RX2Frequency          *uint32
	NumberOfTransmissions uint8
}

// NewConfiguration returns a Configuration with every override unset and
// a single transmission per uplink, matching original_source's Default
// impl.
func NewConfiguration() *Configuration {
	return &Configuration{NumberOfTransmissions: 1}
}
