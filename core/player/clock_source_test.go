package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// collector gathers clock source events for assertions.
type collector struct {
	mu        sync.Mutex
	positions []float64
	duration  float64
	ended     bool
	err       error
}

func (c *collector) events() Events {
	return Events{
		OnTime: func(pos float64) {
			c.mu.Lock()
			c.positions = append(c.positions, pos)
			c.mu.Unlock()
		},
		OnDuration: func(dur float64) {
			c.mu.Lock()
			c.duration = dur
			c.mu.Unlock()
		},
		OnEnded: func() {
			c.mu.Lock()
			c.ended = true
			c.mu.Unlock()
		},
		OnError: func(err error) {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
		},
	}
}

func (c *collector) snapshot() (positions []float64, duration float64, ended bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.positions...), c.duration, c.ended, c.err
}

func fixedProbe(dur float64) ProbeFunc {
	return func(ctx context.Context, url string) (float64, error) {
		return dur, nil
	}
}

func TestClockSource(t *testing.T) {
	Convey("Given a clock source", t, func() {
		col := &collector{}

		Convey("It resolves the duration and advances while playing", func() {
			src := NewClockSource(col.events(), fixedProbe(60))
			src.tick = 5 * time.Millisecond
			defer src.Close()

			So(src.Open("/static/audio/x.mp3"), ShouldBeNil)
			So(src.Play(), ShouldBeNil)
			time.Sleep(60 * time.Millisecond)

			positions, duration, _, _ := col.snapshot()
			So(duration, ShouldEqual, 60)
			So(len(positions), ShouldBeGreaterThan, 0)
			So(positions[len(positions)-1], ShouldBeGreaterThan, 0)

			Convey("And pausing freezes the position", func() {
				src.Pause()
				time.Sleep(20 * time.Millisecond)
				before, _, _, _ := col.snapshot()
				time.Sleep(30 * time.Millisecond)
				after, _, _, _ := col.snapshot()
				So(len(after), ShouldEqual, len(before))
			})
		})

		Convey("Reaching the duration without loop surfaces ended once", func() {
			src := NewClockSource(col.events(), fixedProbe(0.02))
			src.tick = 5 * time.Millisecond
			defer src.Close()

			So(src.Open("x"), ShouldBeNil)
			So(src.Play(), ShouldBeNil)
			time.Sleep(80 * time.Millisecond)

			positions, _, ended, _ := col.snapshot()
			So(ended, ShouldBeTrue)
			So(positions[len(positions)-1], ShouldEqual, 0.02)
		})

		Convey("With loop enabled the position wraps and no ended surfaces", func() {
			src := NewClockSource(col.events(), fixedProbe(0.02))
			src.tick = 5 * time.Millisecond
			src.SetLoop(true)
			defer src.Close()

			So(src.Open("x"), ShouldBeNil)
			So(src.Play(), ShouldBeNil)
			time.Sleep(80 * time.Millisecond)

			_, _, ended, _ := col.snapshot()
			So(ended, ShouldBeFalse)
		})

		Convey("A probe failure surfaces a media load error", func() {
			failing := func(ctx context.Context, url string) (float64, error) {
				return 0, errors.New("object missing")
			}
			src := NewClockSource(col.events(), failing)
			defer src.Close()

			So(src.Open("x"), ShouldBeNil)
			time.Sleep(20 * time.Millisecond)

			_, _, _, err := col.snapshot()
			So(errors.Is(err, ErrMediaLoad), ShouldBeTrue)
		})

		Convey("Seek clamps to the known duration", func() {
			src := NewClockSource(col.events(), fixedProbe(10))
			src.tick = 5 * time.Millisecond
			defer src.Close()

			So(src.Open("x"), ShouldBeNil)
			time.Sleep(20 * time.Millisecond) // let the probe resolve

			So(src.Seek(-3), ShouldEqual, 0)
			So(src.Seek(4), ShouldEqual, 4)
			So(src.Seek(25), ShouldEqual, 10)
		})

		Convey("Close is idempotent and stops further ticks", func() {
			src := NewClockSource(col.events(), fixedProbe(60))
			src.tick = 5 * time.Millisecond

			So(src.Open("x"), ShouldBeNil)
			So(src.Play(), ShouldBeNil)
			src.Close()
			src.Close()

			time.Sleep(20 * time.Millisecond)
			before, _, _, _ := col.snapshot()
			time.Sleep(30 * time.Millisecond)
			after, _, _, _ := col.snapshot()
			So(len(after), ShouldEqual, len(before))

			So(src.Play(), ShouldNotBeNil)
		})
	})
}
