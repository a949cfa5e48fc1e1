// Package entity extracts typed mentions (dates, times, money, organizations
// and people) from cleaned message text.
package entity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

// Extractor combines rule-based recognition with a Tagger's named entities
type Extractor struct {
	tagger core.Tagger
	logger *zap.Logger
}

// NewExtractor creates a new Extractor. tagger may be nil, in which case only
// rule-based entities are produced.
func NewExtractor(tagger core.Tagger, logger *zap.Logger) *Extractor {
	return &Extractor{
		tagger: tagger,
		logger: logger,
	}
}

// Extract returns the entities in text ordered by position. When the tagger
// fails the rule-based entities are still returned together with an error
// wrapping core.ErrCapabilityUnavailable.
func (e *Extractor) Extract(ctx context.Context, text string, now time.Time) ([]core.Entity, error) {
	if e.tagger == nil {
		return Recognize(text, now), nil
	}

	analysis, err := e.tagger.Analyze(ctx, text)
	if err != nil {
		e.logger.Debug("Tagger unavailable, using rule-based entities only",
			zap.String("tagger", e.tagger.Name()),
			zap.Error(err))
		return Recognize(text, now), fmt.Errorf("%w: %v", core.ErrCapabilityUnavailable, err)
	}

	return e.FromAnalysis(text, analysis, now), nil
}

// FromAnalysis merges rule-based entities with the PERSON and ORG entities of
// an existing analysis. Rule-based entities win on overlap.
func (e *Extractor) FromAnalysis(text string, analysis *core.Analysis, now time.Time) []core.Entity {
	entities := Recognize(text, now)
	if analysis == nil {
		return entities
	}

	for _, tagged := range analysis.Entities {
		if tagged.Kind != core.EntityPerson && tagged.Kind != core.EntityOrg {
			continue
		}
		if overlapsAny(tagged, entities) {
			continue
		}
		entities = append(entities, tagged)
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})
	return entities
}

func overlapsAny(e core.Entity, others []core.Entity) bool {
	for _, o := range others {
		if e.Start < o.End && o.Start < e.End {
			return true
		}
	}
	return false
}
