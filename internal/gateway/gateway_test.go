package gateway

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/intentctl/internal/testutil/testlog"
)

func TestClassifyBeforeTrain(t *testing.T) {
	testlog.Start(t)
	g := New()
	if g.Trained() {
		t.Fatalf("new gateway must be untrained")
	}
	_, found, err := g.Classify("weather in paris")
	if !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
	if found {
		t.Fatalf("found must be false when untrained")
	}
}

func TestRetrainThenClassify(t *testing.T) {
	testlog.Start(t)
	g := New()
	if err := g.Retrain([]string{"weather"}, []string{}, []string{"paris"}); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	res, found, err := g.Classify("weather in paris")
	if err != nil || !found {
		t.Fatalf("classify found=%v err=%v", found, err)
	}
	if res.IntentType != IntentName || res.Confidence <= 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Entities[EntityKeyword] != "weather" || res.Entities[EntityLocation] != "paris" {
		t.Fatalf("entities got=%v", res.Entities)
	}

	_, found, err = g.Classify("random text")
	if err != nil || found {
		t.Fatalf("random text found=%v err=%v", found, err)
	}
	if g.Generation() != 1 {
		t.Fatalf("generation got=%d", g.Generation())
	}
}

func TestRetrainReplacesModel(t *testing.T) {
	testlog.Start(t)
	g := New()
	if err := g.Retrain([]string{"a"}, []string{"t"}, []string{"here"}); err != nil {
		t.Fatalf("retrain a: %v", err)
	}
	if _, found, _ := g.Classify("a here"); !found {
		t.Fatalf("first model should match")
	}
	if err := g.Retrain([]string{"b"}, []string{"t"}, []string{"here"}); err != nil {
		t.Fatalf("retrain b: %v", err)
	}
	if _, found, _ := g.Classify("a here"); found {
		t.Fatalf("old keyword must not match after retrain")
	}
	if _, found, _ := g.Classify("b here"); !found {
		t.Fatalf("new keyword should match")
	}
}

func TestRetrainEmptyListsIsDegenerate(t *testing.T) {
	testlog.Start(t)
	g := New()
	if err := g.Retrain(nil, nil, nil); err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if !g.Trained() {
		t.Fatalf("empty retrain still installs a model")
	}
	_, found, err := g.Classify("anything at all")
	if err != nil || found {
		t.Fatalf("degenerate model found=%v err=%v", found, err)
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *recordingObserver) ObserveEngine(op string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op]++
}

func TestObserverReceivesOps(t *testing.T) {
	testlog.Start(t)
	obs := &recordingObserver{ops: make(map[string]int)}
	g := NewWithObserver(obs)
	_, _, _ = g.Classify("x")
	_ = g.Retrain([]string{"k"}, nil, []string{"l"})
	_, _, _ = g.Classify("k l")
	if obs.ops["train"] != 1 || obs.ops["query"] != 2 {
		t.Fatalf("observer ops got=%v", obs.ops)
	}
}

// Each model pairs keyword kN with location lN; a query for pair N must
// only match when model N is installed, never a mix of two models.
func TestConcurrentRetrainAndClassify(t *testing.T) {
	testlog.Start(t)
	g := New()
	if err := g.Retrain([]string{"k0"}, nil, []string{"l0"}); err != nil {
		t.Fatalf("seed retrain: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			if err := g.Retrain([]string{fmt.Sprintf("k%d", n)}, nil, []string{fmt.Sprintf("l%d", n)}); err != nil {
				errs <- err
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			res, found, err := g.Classify(fmt.Sprintf("k%d l%d k%d l%d", n, n, n+1, n+2))
			if err != nil {
				errs <- err
				return
			}
			if !found {
				return
			}
			kw := res.Entities[EntityKeyword]
			loc := res.Entities[EntityLocation]
			if kw[1:] != loc[1:] {
				errs <- fmt.Errorf("mixed model observed: %s/%s", kw, loc)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if g.Generation() != 101 {
		t.Fatalf("generation got=%d want=101", g.Generation())
	}
}
