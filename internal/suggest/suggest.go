// Package suggest ranks the parties of a chat against names that failed to
// resolve and proposes the closest match for each of them.
//
// Similarity is Jaro-Winkler from github.com/adrg/strutil, which rewards a
// shared prefix. Ties keep the earliest candidate, so callers that pass parties
// in a stable order get stable suggestions.
package suggest

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

// Defaults for a zero-configured Engine.
const (
	DefaultThreshold = 0.8
	DefaultMax       = 10
)

// Suggestion pairs a miss with the best matching party.
type Suggestion struct {
	Miss  string
	Party domain.Party
	Score float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the minimum similarity for a suggestion. Values outside
// [0,1] are ignored.
func WithThreshold(th float64) Option {
	return func(e *Engine) {
		if th >= 0 && th <= 1 {
			e.threshold = th
		}
	}
}

// WithMax caps the number of suggestions returned per call.
func WithMax(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.max = n
		}
	}
}

// WithMetric replaces the similarity function.
func WithMetric(m strutil.StringMetric) Option {
	return func(e *Engine) {
		if m != nil {
			e.metric = m
		}
	}
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	metric    strutil.StringMetric
	threshold float64
	max       int
}

// New builds an Engine with case-insensitive Jaro-Winkler, DefaultThreshold
// and DefaultMax unless overridden.
func New(opts ...Option) *Engine {
	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false

	e := &Engine{metric: jw, threshold: DefaultThreshold, max: DefaultMax}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Threshold returns the configured minimum similarity.
func (e *Engine) Threshold() float64 { return e.threshold }

// Score returns the similarity of a party name and a miss in [0,1].
func (e *Engine) Score(name, miss string) float64 {
	return strutil.Similarity(name, miss, e.metric)
}

// Suggest returns at most one suggestion per miss, in miss order, and at most
// the configured maximum overall. Misses with no party scoring at or above the
// threshold produce nothing.
func (e *Engine) Suggest(misses []string, parties []domain.Party) []Suggestion {
	if len(misses) == 0 || len(parties) == 0 {
		return nil
	}
	out := make([]Suggestion, 0, min(len(misses), e.max))
	for _, miss := range misses {
		if len(out) == e.max {
			break
		}
		best, bestScore := -1, 0.0
		for i := range parties {
			s := e.Score(parties[i].Name, miss)
			if s < e.threshold {
				continue
			}
			if best < 0 || s > bestScore {
				best, bestScore = i, s
			}
		}
		if best >= 0 {
			out = append(out, Suggestion{Miss: miss, Party: parties[best], Score: bestScore})
		}
	}
	return out
}
