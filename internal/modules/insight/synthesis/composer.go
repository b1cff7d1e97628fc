package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

// Composer is the deterministic fallback narrator. Same input, same
// draft, no network. It reads stiffer than the model but it always
// answers, which is the contract: a refresh never leaves the panel blank.
type Composer struct{}

func (Composer) Synthesize(_ context.Context, in Input) (*Draft, error) {
	switch in.Kind {
	case KindDissonance:
		return composeDissonance(in), nil
	case KindCounterfactual:
		return composeCounterfactual(in), nil
	default:
		return composeReflection(in), nil
	}
}

func composeReflection(in Input) *Draft {
	d := &Draft{Evidence: in.Evidence}

	lead := ""
	if len(in.Observations) > 0 {
		lead = in.Observations[0]
	}
	switch {
	case in.StateID != "" && in.StateID != "stable":
		label := strings.ReplaceAll(in.StateID, "_", " ")
		d.Title = fmt.Sprintf("Signs of %s in your recent entries", label)
		d.Summary = fmt.Sprintf("Your last stretch of writing reads like %s.", label)
		if in.StateDays >= 1 {
			d.Summary = fmt.Sprintf("Your last stretch of writing reads like %s, going on %.0f days now.", label, in.StateDays)
		}
	case lead != "":
		d.Title = "Something worth noticing in your entries"
		d.Summary = lead
	default:
		d.Title = "Your journal this week"
		d.Summary = "Not enough signal stood out to name one theme, which is its own kind of steady."
	}

	if len(in.Observations) > 0 {
		d.Body = "From your own entries: " + strings.Join(in.Observations, " ")
	}
	switch {
	case len(in.Recovery) > 0:
		d.Recommendation = "Lean on what has pulled you up before: " + strings.Join(capLines(in.Recovery, 3), ", ") + "."
	case lead != "":
		d.Recommendation = "Keep an eye on this over the next few entries and see if it holds."
	default:
		d.Recommendation = "Keep logging; patterns need a little more history to show themselves."
	}
	return d
}

func composeDissonance(in Input) *Draft {
	d := &Draft{
		Title:          "Where your words and your ratings disagree",
		Summary:        "The language in some entries points one way while the mood score points another.",
		Recommendation: "When you notice the gap, trust neither number nor sentence alone; write one more line about what is actually going on.",
		Evidence:       in.Evidence,
	}
	if len(in.Observations) > 0 {
		d.Summary = in.Observations[0]
		d.Body = strings.Join(in.Observations, " ")
	}
	return d
}

func composeCounterfactual(in Input) *Draft {
	d := &Draft{
		Title:          "A small experiment for the week ahead",
		Summary:        "One pattern in your entries suggests an easy variable to try changing.",
		Recommendation: "Treat it as an experiment, not a verdict; a week of entries will tell you more than a resolution will.",
		Evidence:       in.Evidence,
	}
	if len(in.Observations) > 0 {
		d.Summary = in.Observations[0]
		d.Body = strings.Join(in.Observations, " ")
	}
	return d
}

func capLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}

type fallbackPort struct {
	primary Port
	backup  Port
	log     *logger.Logger
}

// WithFallback wraps a primary narrator so any error or malformed draft
// degrades to the backup instead of surfacing.
func WithFallback(primary, backup Port, baseLog *logger.Logger) Port {
	return &fallbackPort{
		primary: primary,
		backup:  backup,
		log:     baseLog.With("component", "SynthesisFallback"),
	}
}

func (p *fallbackPort) Synthesize(ctx context.Context, in Input) (*Draft, error) {
	draft, err := p.primary.Synthesize(ctx, in)
	if err == nil && draft.valid() {
		return draft, nil
	}
	if err != nil {
		p.log.Warn("primary synthesis failed, composing locally", "kind", string(in.Kind), "error", err.Error())
	} else {
		p.log.Warn("primary synthesis returned a malformed draft, composing locally", "kind", string(in.Kind))
	}
	return p.backup.Synthesize(ctx, in)
}
