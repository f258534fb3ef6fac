package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/intentctl/internal/testutil/testlog"
)

func TestDetect(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		prefix [DetectLen]byte
		want   Mode
	}{
		{prefix: [DetectLen]byte{'t', ':'}, want: ModeLegacy},
		{prefix: [DetectLen]byte{'q', ':'}, want: ModeLegacy},
		{prefix: [DetectLen]byte{0, 0}, want: ModeFramed},
		{prefix: [DetectLen]byte{'T', ':'}, want: ModeFramed},
		{prefix: [DetectLen]byte{'t', ';'}, want: ModeFramed},
		{prefix: [DetectLen]byte{':', 't'}, want: ModeFramed},
		// printable high bytes of a large length prefix
		{prefix: [DetectLen]byte{'a', ':'}, want: ModeFramed},
		{prefix: [DetectLen]byte{'{', '"'}, want: ModeFramed},
	}
	for _, tc := range cases {
		if got := Detect(tc.prefix); got != tc.want {
			t.Fatalf("Detect(%q) got=%s want=%s", tc.prefix[:], got, tc.want)
		}
	}
}

func TestWireMessage(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		err  error
		want string
	}{
		{err: ErrMalformedFrame, want: "Failed to decode message."},
		{err: fmt.Errorf("%w: detail", ErrInvalidMessage), want: "Invalid message."},
		{err: ErrInvalidCommand, want: "Invalid command."},
		{err: ErrInvalidTrainData, want: "Input data is invalid."},
		{err: ErrNotTrained, want: "Intent parser was not trained."},
		{err: ErrNoMatch, want: "Failed to parse command."},
		{err: errors.New("boom"), want: "Internal error."},
	}
	for _, tc := range cases {
		if got := WireMessage(tc.err); got != tc.want {
			t.Fatalf("WireMessage(%v) got=%q want=%q", tc.err, got, tc.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	testlog.Start(t)
	if Outcome(nil) != "ok" {
		t.Fatalf("nil outcome should be ok")
	}
	if Outcome(ErrNotTrained) != "not_trained" {
		t.Fatalf("unexpected outcome for not trained")
	}
	if Outcome(errors.New("x")) != "internal" {
		t.Fatalf("unexpected outcome for unknown error")
	}
}

func TestRequestCommands(t *testing.T) {
	testlog.Start(t)
	var req Request = TrainRequest{}
	if req.Command() != CommandTrain {
		t.Fatalf("train command got=%s", req.Command())
	}
	req = QueryRequest{Text: "x"}
	if req.Command() != CommandQuery {
		t.Fatalf("query command got=%s", req.Command())
	}
}
