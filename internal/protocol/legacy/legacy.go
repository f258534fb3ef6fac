// Package legacy decodes the pre-framing text dialect: "t:kw|types|locs" and "q:text".
//
// Malformed legacy input is dropped without a response; callers must not
// turn a false ok into an error reply.
package legacy

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/intentctl/internal/intent"
	"github.com/danmuck/intentctl/internal/protocol"
)

const (
	PrefixTrain = "t:"
	PrefixQuery = "q:"

	// ReadLimit caps the single read that follows the two-byte prefix.
	ReadLimit = 4096 * 4

	segmentSep = "|"
	listSep    = ","
)

var (
	TrainOK     = []byte("1")
	QueryFailed = []byte("-1")
)

// Decode parses a complete legacy message including its two-byte prefix.
// ok is false when the message must be dropped silently.
func Decode(message []byte) (req protocol.Request, ok bool) {
	if len(message) < len(PrefixTrain) || !utf8.Valid(message) {
		return nil, false
	}
	text := string(message)
	switch {
	case strings.HasPrefix(text, PrefixTrain):
		parts := strings.Split(text[len(PrefixTrain):], segmentSep)
		if len(parts) < 3 {
			return nil, false
		}
		return protocol.TrainRequest{
			Keywords:  strings.Split(parts[0], listSep),
			Types:     strings.Split(parts[1], listSep),
			Locations: strings.Split(parts[2], listSep),
		}, true
	case strings.HasPrefix(text, PrefixQuery):
		return protocol.QueryRequest{Text: text[len(PrefixQuery):]}, true
	default:
		return nil, false
	}
}

// Encode renders req in the legacy dialect (client side).
func Encode(req protocol.Request) ([]byte, bool) {
	switch r := req.(type) {
	case protocol.TrainRequest:
		return []byte(PrefixTrain +
			strings.Join(r.Keywords, listSep) + segmentSep +
			strings.Join(r.Types, listSep) + segmentSep +
			strings.Join(r.Locations, listSep)), true
	case protocol.QueryRequest:
		return []byte(PrefixQuery + r.Text), true
	default:
		return nil, false
	}
}

// EncodeResult renders a query success: the bare result object, no envelope.
func EncodeResult(res intent.Result) ([]byte, error) {
	return json.Marshal(res)
}
