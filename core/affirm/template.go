package affirm

import (
	"fmt"
	"strings"
)

// Inputs are the personalization fields collected by the creation form.
type Inputs struct {
	Name string
	Goal string
	Mood string
}

// moodOpeners pick the framing line for the requested mood. Unknown moods
// fall back to the calm opener.
var moodOpeners = map[string]string{
	"calm":      "I breathe slowly and let every thought settle",
	"confident": "I stand tall and trust my own judgment",
	"grateful":  "I notice the good that already surrounds me",
	"energized": "I wake up ready and my energy carries me forward",
	"restful":   "I release the day and sink into stillness",
}

// Generate fills the canonical affirmation template. This is the single
// source of affirmation text; every sentence ends with a period because the
// player derives line highlighting by splitting on periods.
func Generate(in Inputs) string {
	name := strings.TrimSpace(in.Name)
	goal := strings.TrimSpace(in.Goal)

	opener, ok := moodOpeners[strings.ToLower(strings.TrimSpace(in.Mood))]
	if !ok {
		opener = moodOpeners["calm"]
	}

	var b strings.Builder
	b.WriteString(opener)
	b.WriteString(". ")

	if name != "" {
		fmt.Fprintf(&b, "I am %s and I am enough. ", name)
	} else {
		b.WriteString("I am enough. ")
	}

	if goal != "" {
		goal = strings.TrimRight(goal, ".!? ")
		fmt.Fprintf(&b, "Every day I move closer to %s. ", strings.ToLower(goal))
		fmt.Fprintf(&b, "%s is already on its way to me. ", capitalizeFirst(goal))
	}

	b.WriteString("I trust the timing of my life. ")
	b.WriteString("I am exactly where I need to be.")
	return b.String()
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
