package lorawan

import "fmt"

// Kind identifies the category of an Error, so that callers can switch on
// the failure mode instead of matching error strings.
type Kind int

// Encoding errors.
const (
	KindBufferTooSmall Kind = iota + 1
	KindUnsupportedMessageType
	KindUnsupportedMajorVersion
	KindInsufficientBytes
	KindInvalidKey
	KindMacCommandTooBigForFOpts
	KindDataAndMacCommandsInPayloadNotAllowed
	KindFRMPayloadWithFportZero

	// Crypto errors.
	KindInvalidMic

	// Session errors.
	KindNetworkNotJoined
	KindSessionExpired
	KindInvalidDevAddr

	// Region errors.
	KindInvalidTxPower
	KindInvalidChannelIndex
	KindInvalidChannelMaskCtrl
	KindDataRateNotSupported
	KindUnsupportedRx1DROffset
	KindNoValidChannelFound
	KindInvalidCfListType

	// MAC protocol errors.
	KindFOptsFull
	KindNoResponse
	KindUnableToPreparePayload
	KindUnableToDecodePayload

	// Device/collaborator errors (opaque wrapper).
	KindRadio
	KindTimer
	KindRng
	KindPacketQueue
	KindNonVolatileStore
)

func (k Kind) String() string {
	switch k {
	case KindBufferTooSmall:
		return "BufferTooSmall"
	case KindUnsupportedMessageType:
		return "UnsupportedMessageType"
	case KindUnsupportedMajorVersion:
		return "UnsupportedMajorVersion"
	case KindInsufficientBytes:
		return "InsufficientBytes"
	case KindInvalidKey:
		return "InvalidKey"
	case KindMacCommandTooBigForFOpts:
		return "MacCommandTooBigForFOpts"
	case KindDataAndMacCommandsInPayloadNotAllowed:
		return "DataAndMacCommandsInPayloadNotAllowed"
	case KindFRMPayloadWithFportZero:
		return "FRMPayloadWithFportZero"
	case KindInvalidMic:
		return "InvalidMic"
	case KindNetworkNotJoined:
		return "NetworkNotJoined"
	case KindSessionExpired:
		return "SessionExpired"
	case KindInvalidDevAddr:
		return "InvalidDevAddr"
	case KindInvalidTxPower:
		return "InvalidTxPower"
	case KindInvalidChannelIndex:
		return "InvalidChannelIndex"
	case KindInvalidChannelMaskCtrl:
		return "InvalidChannelMaskCtrl"
	case KindDataRateNotSupported:
		return "DataRateNotSupported"
	case KindUnsupportedRx1DROffset:
		return "UnsupportedRx1DROffset"
	case KindNoValidChannelFound:
		return "NoValidChannelFound"
	case KindInvalidCfListType:
		return "InvalidCfListType"
	case KindFOptsFull:
		return "FOptsFull"
	case KindNoResponse:
		return "NoResponse"
	case KindUnableToPreparePayload:
		return "UnableToPreparePayload"
	case KindUnableToDecodePayload:
		return "UnableToDecodePayload"
	case KindRadio:
		return "Radio"
	case KindTimer:
		return "Timer"
	case KindRng:
		return "Rng"
	case KindPacketQueue:
		return "PacketQueue"
	case KindNonVolatileStore:
		return "NonVolatileStore"
	default:
		return "Unknown"
	}
}

// Error is the error type returned across package boundaries so that
// callers can recover the Kind with errors.As, while still reading a
// human-readable message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return "lorawan: " + e.Kind.String()
	}
	return fmt.Sprintf("lorawan: %s: %s", e.Kind, e.Msg)
}

// newError builds an *Error with a formatted message.
func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
