package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/fathom-backend/internal/clients/openai"
	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

// Narrator is the model-backed Port. Every call is rate limited and runs
// under its own timeout so a slow provider can never stall a generation
// pipeline past the budget.
type Narrator struct {
	ai      openai.Client
	log     *logger.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

func NewNarrator(ai openai.Client, baseLog *logger.Logger) *Narrator {
	return &Narrator{
		ai:  ai,
		log: baseLog.With("component", "Synthesis"),
		limiter: rate.NewLimiter(
			rate.Limit(envutil.Float("SYNTHESIS_RPS", 1)),
			envutil.Int("SYNTHESIS_BURST", 2),
		),
		timeout: envutil.Dur("SYNTHESIS_TIMEOUT", 20*time.Second),
	}
}

var draftSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"title", "summary", "body", "evidence", "recommendation"},
	"properties": map[string]any{
		"title":          map[string]any{"type": "string", "description": "short, specific, no clinical jargon"},
		"summary":        map[string]any{"type": "string", "description": "one or two sentences"},
		"body":           map[string]any{"type": "string"},
		"evidence":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"recommendation": map[string]any{"type": "string"},
	},
}

const narratorSystem = `You are the reflective voice of a private journaling app.
You are given observations derived from one person's own entries and health data.
Write back to them in second person: warm, concrete, grounded only in the
observations given. Never diagnose, never invent data, never mention that you
are a model. Respond with JSON matching the schema.`

func (n *Narrator) Synthesize(ctx context.Context, in Input) (*Draft, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	obj, err := n.ai.GenerateJSON(ctx, narratorSystem, n.prompt(in), "insight_draft", draftSchema)
	if err != nil {
		return nil, err
	}
	draft := &Draft{
		Title:          strField(obj, "title"),
		Summary:        strField(obj, "summary"),
		Body:           strField(obj, "body"),
		Evidence:       strSlice(obj, "evidence"),
		Recommendation: strField(obj, "recommendation"),
	}
	if !draft.valid() {
		return nil, fmt.Errorf("malformed draft: title or summary empty")
	}
	if len(draft.Evidence) == 0 {
		draft.Evidence = in.Evidence
	}
	return draft, nil
}

func (n *Narrator) prompt(in Input) string {
	var b strings.Builder
	switch in.Kind {
	case KindDissonance:
		b.WriteString("Task: gently surface where the person's written words and their own mood ratings disagree.\n")
	case KindCounterfactual:
		b.WriteString("Task: sketch how the coming week could look if one observed pattern shifted. Stay hypothetical and kind.\n")
	default:
		b.WriteString("Task: reflect the most load-bearing observation back so the person recognizes themselves in it.\n")
	}
	if in.StateID != "" {
		fmt.Fprintf(&b, "Current state: %s", strings.ReplaceAll(in.StateID, "_", " "))
		if in.StateDays > 0 {
			fmt.Fprintf(&b, " (about %.0f days)", in.StateDays)
		}
		b.WriteString("\n")
	}
	if len(in.Observations) > 0 {
		b.WriteString("Observations:\n")
		for _, o := range in.Observations {
			b.WriteString("- " + o + "\n")
		}
	}
	if len(in.Recovery) > 0 {
		b.WriteString("What has helped this person recover before:\n")
		for _, r := range in.Recovery {
			b.WriteString("- " + r + "\n")
		}
	}
	return b.String()
}

func strField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

func strSlice(obj map[string]any, key string) []string {
	raw, _ := obj[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
