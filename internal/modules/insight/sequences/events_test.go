package sequences

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/types"
)

func seqEntry(day int, mood float64, tags ...string) *types.Entry {
	m := mood
	return &types.Entry{
		ID:          uuid.New(),
		Mood:        &m,
		Tags:        tags,
		EffectiveAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(day) * 24 * time.Hour),
	}
}

func withText(e *types.Entry, text string) *types.Entry {
	e.Text = text
	return e
}

func seriesOf(moods ...float64) []*types.Entry {
	entries := make([]*types.Entry, len(moods))
	for i, m := range moods {
		entries[i] = seqEntry(i, m)
	}
	return entries
}

func TestDetectMoodEventsFindsLocalMinimum(t *testing.T) {
	entries := seriesOf(0.7, 0.7, 0.7, 0.7, 0.3, 0.7, 0.7, 0.7, 0.7)
	dipID := entries[4].ID

	// Feed the detector out of order plus an unscored entry; the series it
	// builds must be chronological and scored-only.
	shuffled := []*types.Entry{entries[8], entries[2], entries[4], entries[0],
		{ID: uuid.New(), EffectiveAt: entries[3].EffectiveAt.Add(time.Hour)},
		entries[6], entries[1], entries[3], entries[5], entries[7]}

	events := DetectMoodEvents(shuffled)
	if len(events) != 1 {
		t.Fatalf("events = %+v, want exactly one", events)
	}
	ev := events[0]
	if ev.Kind != EventLow || ev.Index != 4 || ev.EntryID != dipID {
		t.Fatalf("event = %+v, want low at series index 4", ev)
	}
	if ev.Mood != 0.3 {
		t.Fatalf("event mood = %v, want 0.3", ev.Mood)
	}
}

func TestDetectMoodEventsFindsLocalMaximum(t *testing.T) {
	entries := seriesOf(0.6, 0.6, 0.6, 0.6, 0.85, 0.6, 0.6, 0.6, 0.6)
	events := DetectMoodEvents(entries)
	if len(events) != 1 || events[0].Kind != EventHigh || events[0].Index != 4 {
		t.Fatalf("events = %+v, want one high at index 4", events)
	}
}

func TestDetectMoodEventsBoundaryAndShortSeries(t *testing.T) {
	if events := DetectMoodEvents(seriesOf(0.8, 0.2, 0.8, 0.2, 0.8, 0.2)); events != nil {
		t.Fatalf("events = %+v, want none for a series shorter than 7", events)
	}

	// Exactly 0.15 below both neighbor means still counts.
	events := DetectMoodEvents(seriesOf(0.65, 0.65, 0.65, 0.5, 0.65, 0.65, 0.65))
	if len(events) != 1 || events[0].Kind != EventLow || events[0].Index != 3 {
		t.Fatalf("events = %+v, want one low at index 3", events)
	}
}
