package intent

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxCandidatesPerIntent bounds role-assignment enumeration for one intent.
const maxCandidatesPerIntent = 256

type entry struct {
	tokens     []string
	entityType string
}

// Engine holds one vocabulary and a set of intent schemas.
type Engine struct {
	vocab   map[string][]entry
	seen    map[string]struct{}
	counts  map[string]int
	intents []Intent
}

func NewEngine() *Engine {
	return &Engine{
		vocab:  make(map[string][]entry),
		seen:   make(map[string]struct{}),
		counts: make(map[string]int),
	}
}

// RegisterEntity adds value to the vocabulary under entityType.
// Blank values and blank types are ignored; duplicates are folded.
func (e *Engine) RegisterEntity(value, entityType string) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return
	}
	toks := tokenize(value)
	if len(toks) == 0 {
		return
	}
	words := make([]string, len(toks))
	for i, tok := range toks {
		words[i] = tok.text
	}
	key := strings.Join(words, " ") + "\x00" + entityType
	if _, ok := e.seen[key]; ok {
		return
	}
	e.seen[key] = struct{}{}
	e.vocab[words[0]] = append(e.vocab[words[0]], entry{tokens: words, entityType: entityType})
	e.counts[entityType]++
}

// RegisterIntentParser adds one schema. Names must be unique per engine.
func (e *Engine) RegisterIntentParser(in Intent) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyIntentName
	}
	if len(in.Required) == 0 {
		return fmt.Errorf("%w: %s", ErrNoRequiredRoles, in.Name)
	}
	for _, existing := range e.intents {
		if existing.Name == in.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateIntent, in.Name)
		}
	}
	e.intents = append(e.intents, in)
	return nil
}

// EntityCount reports the number of distinct values registered under entityType.
func (e *Engine) EntityCount(entityType string) int {
	return e.counts[entityType]
}

func (e *Engine) IntentCount() int {
	return len(e.intents)
}

// DetermineIntent yields candidate parses of text by descending confidence.
// The sequence is finite. Nothing is tagged until it is ranged over, and each
// range ranks against the engine state at that moment.
func (e *Engine) DetermineIntent(text string) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for _, r := range e.rank(text) {
			if !yield(r) {
				return
			}
		}
	}
}

func (e *Engine) rank(text string) []Result {
	toks := tokenize(text)
	if len(toks) == 0 || len(e.intents) == 0 {
		return nil
	}
	tags := e.tagUtterance(text, toks)
	if len(tags) == 0 {
		return nil
	}
	total := spanLength(toks)

	var out []Result
	for _, in := range e.intents {
		out = append(out, candidates(in, tags, total)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

type token struct {
	text       string
	start, end int
}

type tag struct {
	text   string
	length int
	types  []string
}

func (t tag) has(role string) bool {
	for _, typ := range t.types {
		if typ == role {
			return true
		}
	}
	return false
}

// tagUtterance scans left to right taking the longest vocabulary match at each token.
func (e *Engine) tagUtterance(text string, toks []token) []tag {
	var tags []tag
	for i := 0; i < len(toks); {
		best := 0
		var types []string
		for _, ent := range e.vocab[toks[i].text] {
			n := len(ent.tokens)
			if n < best || i+n > len(toks) || !matchTokens(toks[i:i+n], ent.tokens) {
				continue
			}
			if n > best {
				best = n
				types = []string{ent.entityType}
				continue
			}
			if !containsString(types, ent.entityType) {
				types = append(types, ent.entityType)
			}
		}
		if best == 0 {
			i++
			continue
		}
		span := toks[i : i+best]
		tags = append(tags, tag{
			text:   text[span[0].start:span[len(span)-1].end],
			length: spanLength(span),
			types:  types,
		})
		i += best
	}
	return tags
}

// candidates enumerates assignments of distinct tags to the required roles of in.
func candidates(in Intent, tags []tag, total int) []Result {
	byRole := make([][]int, len(in.Required))
	for k, role := range in.Required {
		for i, tg := range tags {
			if tg.has(role) {
				byRole[k] = append(byRole[k], i)
			}
		}
		if len(byRole[k]) == 0 {
			return nil
		}
		sortByLength(byRole[k], tags)
	}

	used := make([]bool, len(tags))
	assign := make([]int, len(in.Required))
	seen := make(map[string]struct{})
	var out []Result

	var walk func(k int)
	walk = func(k int) {
		if len(out) >= maxCandidatesPerIntent {
			return
		}
		if k == len(in.Required) {
			res, key := buildResult(in, tags, assign, used, total)
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			out = append(out, res)
			return
		}
		for _, i := range byRole[k] {
			if used[i] {
				continue
			}
			used[i] = true
			assign[k] = i
			walk(k + 1)
			used[i] = false
		}
	}
	walk(0)
	return out
}

func buildResult(in Intent, tags []tag, assign []int, used []bool, total int) (Result, string) {
	entities := make(map[string]string, len(in.Required)+len(in.Optional))
	covered := 0
	for k, role := range in.Required {
		tg := tags[assign[k]]
		entities[role] = tg.text
		covered += tg.length
	}

	var picked []int
	for _, role := range in.Optional {
		best := -1
		for i, tg := range tags {
			if used[i] || !tg.has(role) {
				continue
			}
			if best < 0 || tg.length > tags[best].length {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		used[best] = true
		picked = append(picked, best)
		entities[role] = tags[best].text
		covered += tags[best].length
	}
	for _, i := range picked {
		used[i] = false
	}

	var key strings.Builder
	key.WriteString(in.Name)
	for _, role := range in.Required {
		key.WriteString("\x00" + role + "=" + entities[role])
	}
	for _, role := range in.Optional {
		key.WriteString("\x00" + role + "=" + entities[role])
	}

	return Result{
		IntentType: in.Name,
		Confidence: float64(covered) / float64(total),
		Entities:   entities,
	}, key.String()
}

func sortByLength(idx []int, tags []tag) {
	sort.SliceStable(idx, func(a, b int) bool {
		return tags[idx[a]].length > tags[idx[b]].length
	})
}

// tokenize splits s into lower-cased runs of letters, digits and underscores.
func tokenize(s string) []token {
	var toks []token
	start := -1
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			toks = append(toks, token{text: strings.ToLower(s[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: strings.ToLower(s[start:]), start: start, end: len(s)})
	}
	return toks
}

// spanLength is the rune length of toks joined by single spaces.
func spanLength(toks []token) int {
	n := len(toks) - 1
	for _, tok := range toks {
		n += utf8.RuneCountInString(tok.text)
	}
	return n
}

func matchTokens(toks []token, words []string) bool {
	for i, w := range words {
		if toks[i].text != w {
			return false
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
