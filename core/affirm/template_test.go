package affirm

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Generate", t, func() {
		Convey("Weaves the name and goal into the script", func() {
			text := Generate(Inputs{Name: "Maya", Goal: "a calm mind", Mood: "calm"})
			So(text, ShouldContainSubstring, "I am Maya")
			So(text, ShouldContainSubstring, "a calm mind")
		})

		Convey("Every sentence ends with a period so line sync can split it", func() {
			text := Generate(Inputs{Name: "Maya", Goal: "restful sleep", Mood: "restful"})
			So(strings.HasSuffix(text, "."), ShouldBeTrue)
			for _, line := range strings.Split(text, ".") {
				So(strings.TrimSpace(line), ShouldNotContainSubstring, "\n")
			}
		})

		Convey("Is deterministic for identical inputs", func() {
			a := Generate(Inputs{Name: "Sam", Goal: "confidence", Mood: "confident"})
			b := Generate(Inputs{Name: "Sam", Goal: "confidence", Mood: "confident"})
			So(a, ShouldEqual, b)
		})

		Convey("Unknown moods fall back to the calm opener", func() {
			unknown := Generate(Inputs{Mood: "mysterious"})
			calm := Generate(Inputs{Mood: "calm"})
			So(unknown, ShouldEqual, calm)
		})

		Convey("Handles empty inputs without degenerate text", func() {
			text := Generate(Inputs{})
			So(text, ShouldNotBeEmpty)
			So(text, ShouldContainSubstring, "I am enough")
			So(text, ShouldNotContainSubstring, "I am  ")
		})
	})
}
