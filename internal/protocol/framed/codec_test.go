package framed

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/intentctl/internal/intent"
	"github.com/danmuck/intentctl/internal/protocol"
	"github.com/danmuck/intentctl/internal/testutil/testlog"
)

func TestDecodeTrain(t *testing.T) {
	testlog.Start(t)
	req, err := DecodeRequest([]byte(`{"command":"train","data":{"keywords":["weather"],"types":[],"locations":["paris","oslo"]}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	train, ok := req.(protocol.TrainRequest)
	if !ok {
		t.Fatalf("expected TrainRequest, got %T", req)
	}
	if !reflect.DeepEqual(train.Keywords, []string{"weather"}) ||
		len(train.Types) != 0 ||
		!reflect.DeepEqual(train.Locations, []string{"paris", "oslo"}) {
		t.Fatalf("unexpected train request: %+v", train)
	}
}

func TestDecodeQuery(t *testing.T) {
	testlog.Start(t)
	req, err := DecodeRequest([]byte(`{"command":"query","data":"weather in paris"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q, ok := req.(protocol.QueryRequest); !ok || q.Text != "weather in paris" {
		t.Fatalf("unexpected query: %#v", req)
	}
}

func TestDecodeErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		payload string
		want    error
		wire    string
	}{
		{name: "garbage", payload: "\x00\x01not json", want: protocol.ErrMalformedFrame, wire: "Failed to decode message."},
		{name: "truncated", payload: `{"command":"query"`, want: protocol.ErrMalformedFrame, wire: "Failed to decode message."},
		{name: "invalid utf8", payload: "{\"command\":\"query\",\"data\":\"\xff\"}", want: protocol.ErrMalformedFrame, wire: "Failed to decode message."},
		{name: "empty", payload: "", want: protocol.ErrMalformedFrame, wire: "Failed to decode message."},
		{name: "array", payload: `["command","data"]`, want: protocol.ErrInvalidMessage, wire: "Invalid message."},
		{name: "missing data", payload: `{"command":"query"}`, want: protocol.ErrInvalidMessage, wire: "Invalid message."},
		{name: "missing command", payload: `{"data":"x"}`, want: protocol.ErrInvalidMessage, wire: "Invalid message."},
		{name: "unknown command", payload: `{"command":"forget","data":"x"}`, want: protocol.ErrInvalidCommand, wire: "Invalid command."},
		{name: "command not string", payload: `{"command":7,"data":"x"}`, want: protocol.ErrInvalidCommand, wire: "Invalid command."},
		{name: "train missing locations", payload: `{"command":"train","data":{"keywords":[],"types":[]}}`, want: protocol.ErrInvalidTrainData, wire: "Input data is invalid."},
		{name: "train data string", payload: `{"command":"train","data":"keywords"}`, want: protocol.ErrInvalidTrainData, wire: "Input data is invalid."},
		{name: "train non-string entry", payload: `{"command":"train","data":{"keywords":[1],"types":[],"locations":[]}}`, want: protocol.ErrInvalidTrainData, wire: "Input data is invalid."},
		{name: "query data object", payload: `{"command":"query","data":{}}`, want: protocol.ErrInvalidTrainData, wire: "Input data is invalid."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tc.payload))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := protocol.WireMessage(err); got != tc.wire {
				t.Fatalf("wire got=%q want=%q", got, tc.wire)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	reqs := []protocol.Request{
		protocol.TrainRequest{Keywords: []string{"a", "b"}, Types: []string{}, Locations: []string{"c"}},
		protocol.TrainRequest{},
		protocol.QueryRequest{Text: "a in c"},
		protocol.QueryRequest{},
	}
	for _, in := range reqs {
		b, err := EncodeRequest(in)
		if err != nil {
			t.Fatalf("encode %#v: %v", in, err)
		}
		out, err := DecodeRequest(b)
		if err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
		again, err := EncodeRequest(out)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if string(b) != string(again) {
			t.Fatalf("round-trip mismatch: %s != %s", b, again)
		}
	}
}

func TestEncodeResponses(t *testing.T) {
	testlog.Start(t)
	b, err := EncodeSuccess(nil)
	if err != nil {
		t.Fatalf("encode success: %v", err)
	}
	if string(b) != `{"status":"success"}` {
		t.Fatalf("success got=%s", b)
	}

	b, err = EncodeError(protocol.ErrNotTrained)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if string(b) != `{"status":"error","error":"Intent parser was not trained."}` {
		t.Fatalf("error got=%s", b)
	}

	res := &intent.Result{IntentType: "Intent", Confidence: 0.5, Entities: map[string]string{"Keyword": "a"}}
	b, err = EncodeSuccess(res)
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	resp, err := DecodeResponse(b)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusSuccess || resp.Data == nil || resp.Data.Entities["Keyword"] != "a" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDecodeResponseRejectsUnknownStatus(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeResponse([]byte(`{"status":"maybe"}`)); !errors.Is(err, protocol.ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if _, err := DecodeResponse([]byte(`nope`)); !errors.Is(err, protocol.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}
