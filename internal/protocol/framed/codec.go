// Package framed is the JSON command codec carried inside length-prefixed frames.
package framed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/intentctl/internal/intent"
	"github.com/danmuck/intentctl/internal/protocol"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope written back to framed clients.
type Response struct {
	Status string         `json:"status"`
	Data   *intent.Result `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type envelope struct {
	Command string `json:"command"`
	Data    any    `json:"data"`
}

// DecodeRequest parses one framed payload into a request.
func DecodeRequest(payload []byte) (protocol.Request, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid utf-8", protocol.ErrMalformedFrame)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid json", protocol.ErrMalformedFrame)
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg == nil {
		return nil, fmt.Errorf("%w: payload is not an object", protocol.ErrInvalidMessage)
	}

	rawCmd, okCmd := msg["command"]
	data, okData := msg["data"]
	if !okCmd || !okData {
		return nil, protocol.ErrInvalidMessage
	}

	var cmd string
	if err := json.Unmarshal(rawCmd, &cmd); err != nil {
		return nil, fmt.Errorf("%w: command is not a string", protocol.ErrInvalidCommand)
	}

	switch protocol.Command(cmd) {
	case protocol.CommandTrain:
		return decodeTrain(data)
	case protocol.CommandQuery:
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, fmt.Errorf("%w: query data is not a string", protocol.ErrInvalidTrainData)
		}
		return protocol.QueryRequest{Text: text}, nil
	default:
		return nil, fmt.Errorf("%w: %q", protocol.ErrInvalidCommand, cmd)
	}
}

func decodeTrain(data json.RawMessage) (protocol.Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: train data is not an object", protocol.ErrInvalidTrainData)
	}
	var req protocol.TrainRequest
	for _, f := range []struct {
		key string
		dst *[]string
	}{
		{key: "keywords", dst: &req.Keywords},
		{key: "types", dst: &req.Types},
		{key: "locations", dst: &req.Locations},
	} {
		raw, ok := fields[f.key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", protocol.ErrInvalidTrainData, f.key)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("%w: %s is null", protocol.ErrInvalidTrainData, f.key)
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", protocol.ErrInvalidTrainData, f.key, err)
		}
	}
	return req, nil
}

// EncodeRequest renders req as a framed JSON payload (without length prefix).
func EncodeRequest(req protocol.Request) ([]byte, error) {
	switch r := req.(type) {
	case protocol.TrainRequest:
		return json.Marshal(envelope{Command: string(protocol.CommandTrain), Data: protocol.TrainRequest{
			Keywords:  nonNil(r.Keywords),
			Types:     nonNil(r.Types),
			Locations: nonNil(r.Locations),
		}})
	case protocol.QueryRequest:
		return json.Marshal(envelope{Command: string(protocol.CommandQuery), Data: r.Text})
	default:
		return nil, fmt.Errorf("%w: unsupported request %T", protocol.ErrInvalidCommand, req)
	}
}

// EncodeSuccess renders a success envelope; a nil result omits data.
func EncodeSuccess(result *intent.Result) ([]byte, error) {
	return json.Marshal(Response{Status: StatusSuccess, Data: result})
}

// EncodeError renders err as an error envelope with its wire text.
func EncodeError(err error) ([]byte, error) {
	return json.Marshal(Response{Status: StatusError, Error: protocol.WireMessage(err)})
}

func DecodeResponse(b []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", protocol.ErrMalformedFrame, err)
	}
	if resp.Status != StatusSuccess && resp.Status != StatusError {
		return Response{}, fmt.Errorf("%w: unknown status %q", protocol.ErrInvalidMessage, resp.Status)
	}
	return resp, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
