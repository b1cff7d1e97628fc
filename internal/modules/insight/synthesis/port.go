package synthesis

import (
	"context"
	"strings"
)

// Kind selects the narrative register. Dissonance and counterfactual are
// optional enrichments; each runs in its own failure boundary upstream.
type Kind string

const (
	KindReflection     Kind = "reflection"
	KindDissonance     Kind = "dissonance"
	KindCounterfactual Kind = "counterfactual"
)

// Input is the prepared material a narrator works from. The engine does
// all the numeric work first; by the time it gets here everything is a
// human-readable line.
type Input struct {
	Kind      Kind
	StateID   string
	StateDays float64

	// Observations are ordered most-important-first.
	Observations []string
	// Recovery holds the ranked "what helps" lines, when known.
	Recovery []string
	// Evidence passes through to the draft for citation.
	Evidence []string
}

// Draft is what a narrator hands back. Title and Summary are mandatory;
// a draft missing either is malformed and triggers the fallback.
type Draft struct {
	Title          string
	Summary        string
	Body           string
	Evidence       []string
	Recommendation string
}

func (d *Draft) valid() bool {
	return d != nil && strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Summary) != ""
}

// Port is the synthesis capability. Implementations must honor ctx
// cancellation; callers bound each call with a timeout.
type Port interface {
	Synthesize(ctx context.Context, in Input) (*Draft, error)
}
