// Package intent is the classification engine behind the gateway.
//
// Ownership boundary:
// - entity vocabulary keyed by role (entity type)
// - intent schemas built from required/optional roles
// - ranked intent determination over one utterance
//
// An Engine is not safe for concurrent use; callers serialize access.
package intent

import (
	"errors"
	"fmt"
	"strings"
)

const (
	keyIntentType = "intent_type"
	keyConfidence = "confidence"
	keyTarget     = "target"
)

var (
	ErrEmptyIntentName = errors.New("intent: empty intent name")
	ErrNoRequiredRoles = errors.New("intent: schema has no required roles")
	ErrInvalidRole     = errors.New("intent: invalid role")
	ErrDuplicateRole   = errors.New("intent: duplicate role")
	ErrDuplicateIntent = errors.New("intent: duplicate intent name")
)

var reservedResultKeys = map[string]struct{}{keyIntentType: {}, keyConfidence: {}, keyTarget: {}}

// Intent is one immutable schema: a name plus required and optional roles.
type Intent struct {
	Name     string
	Required []string
	Optional []string
}

// IntentBuilder assembles an Intent in call order.
type IntentBuilder struct {
	name     string
	required []string
	optional []string
}

func NewIntentBuilder(name string) *IntentBuilder {
	return &IntentBuilder{name: name}
}

// Require marks entityType as a role that must be matched.
func (b *IntentBuilder) Require(entityType string) *IntentBuilder {
	b.required = append(b.required, entityType)
	return b
}

// Optionally marks entityType as a role that is reported when matched.
func (b *IntentBuilder) Optionally(entityType string) *IntentBuilder {
	b.optional = append(b.optional, entityType)
	return b
}

func (b *IntentBuilder) Build() (Intent, error) {
	name := strings.TrimSpace(b.name)
	if name == "" {
		return Intent{}, ErrEmptyIntentName
	}
	if len(b.required) == 0 {
		return Intent{}, fmt.Errorf("%w: %s", ErrNoRequiredRoles, name)
	}
	seen := make(map[string]struct{}, len(b.required)+len(b.optional))
	check := func(role string) error {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("%w: empty role in %s", ErrInvalidRole, name)
		}
		if _, ok := reservedResultKeys[role]; ok {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidRole, role)
		}
		if _, ok := seen[role]; ok {
			return fmt.Errorf("%w: %q in %s", ErrDuplicateRole, role, name)
		}
		seen[role] = struct{}{}
		return nil
	}
	for _, role := range b.required {
		if err := check(role); err != nil {
			return Intent{}, err
		}
	}
	for _, role := range b.optional {
		if err := check(role); err != nil {
			return Intent{}, err
		}
	}
	return Intent{
		Name:     name,
		Required: append([]string(nil), b.required...),
		Optional: append([]string(nil), b.optional...),
	}, nil
}
