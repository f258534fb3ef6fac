package protocol

import "errors"

var (
	ErrMalformedFrame   = errors.New("protocol: malformed frame")
	ErrInvalidMessage   = errors.New("protocol: invalid message")
	ErrInvalidCommand   = errors.New("protocol: invalid command")
	ErrInvalidTrainData = errors.New("protocol: invalid data")
	ErrNotTrained       = errors.New("protocol: intent parser was not trained")
	ErrNoMatch          = errors.New("protocol: no matching intent")
)

// Wire text sent to framed clients in the error field.
const (
	MsgMalformedFrame = "Failed to decode message."
	MsgInvalidMessage = "Invalid message."
	MsgInvalidCommand = "Invalid command."
	MsgInvalidData    = "Input data is invalid."
	MsgNotTrained     = "Intent parser was not trained."
	MsgNoMatch        = "Failed to parse command."
	MsgInternal       = "Internal error."
)

// WireMessage maps err onto the client-facing error text.
func WireMessage(err error) string {
	switch {
	case errors.Is(err, ErrMalformedFrame):
		return MsgMalformedFrame
	case errors.Is(err, ErrInvalidMessage):
		return MsgInvalidMessage
	case errors.Is(err, ErrInvalidCommand):
		return MsgInvalidCommand
	case errors.Is(err, ErrInvalidTrainData):
		return MsgInvalidData
	case errors.Is(err, ErrNotTrained):
		return MsgNotTrained
	case errors.Is(err, ErrNoMatch):
		return MsgNoMatch
	default:
		return MsgInternal
	}
}

// Outcome is a short metrics/log label for err; nil is "ok".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrInvalidCommand):
		return "invalid_command"
	case errors.Is(err, ErrInvalidTrainData):
		return "invalid_data"
	case errors.Is(err, ErrNotTrained):
		return "not_trained"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	default:
		return "internal"
	}
}
