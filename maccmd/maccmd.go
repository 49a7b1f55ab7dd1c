package maccmd

import (
	"errors"
	"fmt"
)

// MACCommandPayload is the interface that every MAC command payload
// must implement.
type MACCommandPayload interface {
	MarshalBinary() (data []byte, err error)
	UnmarshalBinary(data []byte) error
}

// MACCommand represents a MAC command with an optional payload. Commands
// without a registered payload (e.g. LinkCheckReq, DevStatusReq) carry a
// nil Payload.
type MACCommand struct {
	CID     CID
	Payload MACCommandPayload
}

// MarshalBinary marshals the command as CID followed by its payload, if any.
func (m MACCommand) MarshalBinary() ([]byte, error) {
	b := []byte{byte(m.CID)}
	if m.Payload != nil {
		p, err := m.Payload.MarshalBinary()
		if err != nil {
			return nil, err
		}
		b = append(b, p...)
	}
	return b, nil
}

// UnmarshalBinary decodes a MAC command. uplink selects which side's
// payload registry is consulted, since Req and Ans share a CID.
func (m *MACCommand) UnmarshalBinary(uplink bool, data []byte) error {
	if len(data) == 0 {
		return errors.New("maccmd: at least 1 byte of data is expected")
	}

	m.CID = CID(data[0])

	if len(data) > 1 {
		p, _, ok := payloadAndSize(uplink, m.CID)
		if !ok {
			return fmt.Errorf("maccmd: payload unknown for uplink=%v and CID=%s", uplink, m.CID)
		}
		m.Payload = p
		if err := m.Payload.UnmarshalBinary(data[1:]); err != nil {
			return err
		}
	}
	return nil
}

type payloadInfo struct {
	size    int
	payload func() MACCommandPayload
}

// payloadRegistry holds the payload constructors for both directions of
// every in-scope MAC command, keyed map[uplink]map[CID]. Commands without an
// entry carry no payload.
var payloadRegistry = map[bool]map[CID]payloadInfo{
	// commands sent by the network, parsed by the device
	false: {
		LinkCheckAns:     {2, func() MACCommandPayload { return &LinkCheckAnsPayload{} }},
		LinkADRReq:       {4, func() MACCommandPayload { return &LinkADRReqPayload{} }},
		DutyCycleReq:     {1, func() MACCommandPayload { return &DutyCycleReqPayload{} }},
		RXParamSetupReq:  {4, func() MACCommandPayload { return &RXParamSetupReqPayload{} }},
		NewChannelReq:    {5, func() MACCommandPayload { return &NewChannelReqPayload{} }},
		RXTimingSetupReq: {1, func() MACCommandPayload { return &RXTimingSetupReqPayload{} }},
		TXParamSetupReq:  {1, func() MACCommandPayload { return &TXParamSetupReqPayload{} }},
		DLChannelReq:     {4, func() MACCommandPayload { return &DLChannelReqPayload{} }},
		DeviceTimeAns:    {5, func() MACCommandPayload { return &DeviceTimeAnsPayload{} }},
	},
	// commands sent by the device, parsed by the network
	true: {
		LinkADRAns:      {1, func() MACCommandPayload { return &LinkADRAnsPayload{} }},
		RXParamSetupAns: {1, func() MACCommandPayload { return &RXParamSetupAnsPayload{} }},
		DevStatusAns:    {2, func() MACCommandPayload { return &DevStatusAnsPayload{} }},
		NewChannelAns:   {1, func() MACCommandPayload { return &NewChannelAnsPayload{} }},
		DLChannelAns:    {1, func() MACCommandPayload { return &DLChannelAnsPayload{} }},
	},
}

func payloadAndSize(uplink bool, c CID) (MACCommandPayload, int, bool) {
	v, ok := payloadRegistry[uplink][c]
	if !ok {
		return nil, 0, false
	}
	return v.payload(), v.size, true
}

// DecodeFOpts decodes a FOpts (or FPort=0 FRMPayload) byte slice into its
// constituent MAC commands.
func DecodeFOpts(uplink bool, data []byte) ([]MACCommand, error) {
	var out []MACCommand
	for len(data) > 0 {
		var m MACCommand
		cid := CID(data[0])
		_, size, ok := payloadAndSize(uplink, cid)
		if !ok {
			size = 0
		}
		end := 1 + size
		if end > len(data) {
			return nil, fmt.Errorf("maccmd: not enough bytes remaining for %s", cid)
		}
		if err := m.UnmarshalBinary(uplink, data[:end]); err != nil {
			return nil, err
		}
		out = append(out, m)
		data = data[end:]
	}
	return out, nil
}
