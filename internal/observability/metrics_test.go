package observability

import (
	"testing"
	"time"

	"github.com/danmuck/intentctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	testlog.Start(t)
	rec := NewRecorder()

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("framed", "query", "not_trained"))
	rec.RequestHandled("framed", "query", "not_trained")
	rec.RequestHandled("framed", "query", "not_trained")
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("framed", "query", "not_trained"))
	if after-before != 2 {
		t.Fatalf("requests delta got=%v", after-before)
	}

	active := testutil.ToFloat64(connectionsActive)
	rec.ConnectionActive(1)
	rec.ConnectionActive(-1)
	if testutil.ToFloat64(connectionsActive) != active {
		t.Fatalf("active gauge should return to %v", active)
	}

	rec.ObserveEngine("train", 3*time.Millisecond)
	if n := testutil.CollectAndCount(engineDuration); n == 0 {
		t.Fatalf("expected engine histogram series")
	}
}
