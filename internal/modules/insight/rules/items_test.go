package rules

import (
	"reflect"
	"testing"

	"github.com/yungbote/fathom-backend/internal/modules/insight/features"
)

func fp(v float64) *float64 { return &v }

func TestItemizeCoversEveryBucket(t *testing.T) {
	fs := features.FeatureSet{
		Temporal: features.Temporal{
			DayOfWeek:  "monday",
			HourBucket: "morning",
			Season:     "winter",
			Holiday:    true,
		},
		Entities: features.Entities{
			People:        []string{"maya"},
			Places:        []string{"office"},
			Activities:    []string{"running"},
			Topics:        []string{"work"},
			FirstMentions: []string{"person:maya"},
		},
		Context: features.Context{
			Weather:    "rainy",
			SleepHours: fp(5.5),
			Workout:    true,
			EntryType:  "gratitude",
		},
		Sequential: features.Sequential{
			HasPrev:       true,
			DaysSincePrev: 4,
			EntriesLast7d: 6,
		},
	}

	got := Itemize(fs)
	want := []string{
		"activity:running",
		"after_gap",
		"day:monday",
		"dense_week",
		"first_mention",
		"holiday",
		"person:maya",
		"place:office",
		"season:winter",
		"short_sleep",
		"time:morning",
		"topic:work",
		"type:gratitude",
		"weather:rainy",
		"workout",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Itemize = %v, want %v", got, want)
	}
}

func TestItemizeSparseEntry(t *testing.T) {
	fs := features.FeatureSet{
		Temporal: features.Temporal{DayOfWeek: "friday", HourBucket: "night", Season: "summer"},
		Entities: features.Entities{IsAlone: true},
		Context:  features.Context{SleepHours: fp(9)},
	}
	got := Itemize(fs)
	want := []string{"alone", "day:friday", "long_sleep", "season:summer", "time:night"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Itemize = %v, want %v", got, want)
	}
}

func TestPlausibleSingles(t *testing.T) {
	cases := []struct {
		items []string
		want  bool
	}{
		{[]string{"season:summer"}, false},
		{[]string{"season:winter"}, true},
		{[]string{"day:tuesday"}, false},
		{[]string{"day:monday"}, true},
		{[]string{"weather:sunny"}, false},
		{[]string{"weather:rainy"}, true},
		{[]string{"workout"}, true},
		{[]string{"season:summer", "workout"}, true},
	}
	for _, tc := range cases {
		if got := plausible(tc.items); got != tc.want {
			t.Fatalf("plausible(%v) = %v, want %v", tc.items, got, tc.want)
		}
	}
}
