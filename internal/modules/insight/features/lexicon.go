package features

// Fixed lexicons for the linguistic bucket. Matching is case-insensitive
// over normalized tokens; multi-word phrases are matched against the
// normalized text. These lists are data for the extractor, not tunables.

var positiveWords = map[string]bool{
	"happy": true, "glad": true, "grateful": true, "calm": true,
	"excited": true, "proud": true, "hopeful": true, "relieved": true,
	"energized": true, "content": true, "peaceful": true, "joy": true,
	"joyful": true, "love": true, "loved": true, "great": true,
	"wonderful": true, "amazing": true, "good": true, "better": true,
	"rested": true, "strong": true, "accomplished": true, "fun": true,
}

var negativeWords = map[string]bool{
	"sad": true, "angry": true, "anxious": true, "worried": true,
	"tired": true, "exhausted": true, "stressed": true, "overwhelmed": true,
	"frustrated": true, "lonely": true, "afraid": true, "scared": true,
	"hopeless": true, "numb": true, "guilty": true, "ashamed": true,
	"irritable": true, "drained": true, "awful": true, "terrible": true,
	"bad": true, "worse": true, "hurt": true, "miserable": true,
	"restless": true, "dread": true,
}

var obligationWords = map[string]bool{
	"should": true, "must": true, "ought": true, "obligated": true,
	"deadline": true, "required": true,
}

var obligationPhrases = []string{
	"have to", "has to", "had to", "need to", "needs to",
	"supposed to", "can't afford to",
}

var uncertaintyWords = map[string]bool{
	"maybe": true, "perhaps": true, "possibly": true, "unsure": true,
	"uncertain": true, "unclear": true, "confused": true, "might": true,
	"wondering": true, "doubt": true,
}

var uncertaintyPhrases = []string{
	"not sure", "no idea", "don't know", "dont know", "what if",
}

var selfReferenceWords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "mine": true,
	"i'm": true, "im": true, "i've": true, "ive": true,
}

// workoutActivities marks activity tags that set the workout flag even
// without a health snapshot.
var workoutActivities = map[string]bool{
	"workout": true, "gym": true, "run": true, "running": true,
	"lifting": true, "swim": true, "swimming": true, "cycling": true,
	"yoga": true, "climbing": true, "hike": true, "hiking": true,
}
