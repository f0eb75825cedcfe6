package player

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitLines(t *testing.T) {
	Convey("SplitLines", t, func() {
		Convey("Splits on periods, trims and drops empties", func() {
			So(SplitLines("I am calm. I am strong."), ShouldResemble, []string{"I am calm", "I am strong"})
			So(SplitLines("  One.  Two .. Three.  "), ShouldResemble, []string{"One", "Two", "Three"})
		})
		Convey("Empty text yields no lines", func() {
			So(SplitLines(""), ShouldBeEmpty)
			So(SplitLines(" . . "), ShouldBeEmpty)
		})
	})
}

func TestLineIndex(t *testing.T) {
	Convey("LineIndex", t, func() {
		Convey("Partitions time evenly across the lines", func() {
			// 3 lines over 9s: position 5 falls in the middle third.
			So(LineIndex("A. B. C.", 5, 9), ShouldEqual, 1)
			So(LineIndex("A. B. C.", 0, 9), ShouldEqual, 0)
			So(LineIndex("A. B. C.", 8.9, 9), ShouldEqual, 2)
		})

		Convey("Is deterministic for identical inputs", func() {
			first := LineIndex("A. B. C.", 5, 9)
			for i := 0; i < 10; i++ {
				So(LineIndex("A. B. C.", 5, 9), ShouldEqual, first)
			}
		})

		Convey("Clamps at the boundaries instead of overflowing", func() {
			So(LineIndex("A. B. C.", 9, 9), ShouldEqual, 2)
			So(LineIndex("A. B. C.", 42, 9), ShouldEqual, 2)
			So(LineIndex("A. B. C.", -1, 9), ShouldEqual, 0)
		})

		Convey("Reports no line when duration or text is missing", func() {
			So(LineIndex("", 0, 0), ShouldEqual, NoLine)
			So(LineIndex("A. B.", 3, 0), ShouldEqual, NoLine)
			So(LineIndex("", 3, 10), ShouldEqual, NoLine)
			So(LineIndex("...", 3, 10), ShouldEqual, NoLine)
		})
	})
}
