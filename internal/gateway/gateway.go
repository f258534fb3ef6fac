// Package gateway owns the process-wide intent engine.
//
// Every train and query passes through one mutex held for the whole
// operation; the engine itself is never handed to callers.
package gateway

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/intentctl/internal/intent"
	"github.com/rs/zerolog/log"
)

const (
	IntentName     = "Intent"
	EntityKeyword  = "Keyword"
	EntityType     = "Type"
	EntityLocation = "Location"
)

var (
	ErrNotTrained    = errors.New("gateway: intent parser was not trained")
	ErrRetrainFailed = errors.New("gateway: retrain failed")
)

// Observer receives engine operation timings. Nil observers are allowed.
type Observer interface {
	ObserveEngine(op string, d time.Duration)
}

// Gateway serializes Retrain and Classify against one engine instance.
type Gateway struct {
	mu         sync.Mutex
	engine     *intent.Engine
	generation uint64
	observer   Observer
}

func New() *Gateway {
	return &Gateway{}
}

// NewWithObserver returns a gateway reporting engine timings to obs.
func NewWithObserver(obs Observer) *Gateway {
	return &Gateway{observer: obs}
}

// Retrain replaces the model with one built from the given vocabularies.
// The gateway is untrained if construction fails.
func (g *Gateway) Retrain(keywords, types, locations []string) (err error) {
	g.mu.Lock()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.engine = nil
			err = fmt.Errorf("%w: %v", ErrRetrainFailed, r)
		}
		g.observe("train", time.Since(start))
		g.mu.Unlock()
	}()

	g.engine = nil
	next, err := build(keywords, types, locations)
	if err != nil {
		return err
	}
	g.engine = next
	g.generation++

	log.Debug().
		Uint64("generation", g.generation).
		Int("keywords", next.EntityCount(EntityKeyword)).
		Int("types", next.EntityCount(EntityType)).
		Int("locations", next.EntityCount(EntityLocation)).
		Msg("gateway retrained")
	return nil
}

// Classify returns the first candidate with positive confidence.
// found is false when the model yields no such candidate.
func (g *Gateway) Classify(text string) (res intent.Result, found bool, err error) {
	g.mu.Lock()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res, found, err = intent.Result{}, false, fmt.Errorf("gateway: classify failed: %v", r)
		}
		g.observe("query", time.Since(start))
		g.mu.Unlock()
	}()

	if g.engine == nil {
		return intent.Result{}, false, ErrNotTrained
	}
	for candidate := range g.engine.DetermineIntent(text) {
		if candidate.Confidence > 0 {
			return candidate, true, nil
		}
	}
	return intent.Result{}, false, nil
}

func (g *Gateway) Trained() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine != nil
}

// Generation counts successful retrains since process start.
func (g *Gateway) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

func (g *Gateway) observe(op string, d time.Duration) {
	if g.observer != nil {
		g.observer.ObserveEngine(op, d)
	}
}

func build(keywords, types, locations []string) (*intent.Engine, error) {
	e := intent.NewEngine()
	for _, kw := range keywords {
		e.RegisterEntity(kw, EntityKeyword)
	}
	for _, t := range types {
		e.RegisterEntity(t, EntityType)
	}
	for _, loc := range locations {
		e.RegisterEntity(loc, EntityLocation)
	}

	schema, err := intent.NewIntentBuilder(IntentName).
		Require(EntityKeyword).
		Optionally(EntityType).
		Require(EntityLocation).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrainFailed, err)
	}
	if err := e.RegisterIntentParser(schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrainFailed, err)
	}
	return e, nil
}
