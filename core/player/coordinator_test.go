package player

import (
	"errors"
	"sync"
	"testing"

	"stillfm/model"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeSource is a hand-driven Source: tests fire its events directly and
// inspect what the coordinator asked of it.
type fakeSource struct {
	mu      sync.Mutex
	ev      Events
	url     string
	openErr error
	playErr error

	opened  bool
	closed  bool
	playing bool
	dur     float64
	loop    bool
	rate    float64
	seeks   []float64
}

func (f *fakeSource) Open(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	f.url = url
	return nil
}

func (f *fakeSource) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeSource) Pause() {
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
}

func (f *fakeSource) Seek(pos float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if f.dur > 0 && pos > f.dur {
		pos = f.dur
	}
	f.seeks = append(f.seeks, pos)
	return pos
}

func (f *fakeSource) SetLoop(loop bool) {
	f.mu.Lock()
	f.loop = loop
	f.mu.Unlock()
}

func (f *fakeSource) SetRate(rate float64) {
	f.mu.Lock()
	f.rate = rate
	f.mu.Unlock()
}

func (f *fakeSource) Close() {
	f.mu.Lock()
	f.closed = true
	f.playing = false
	f.mu.Unlock()
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeRig tracks every source the coordinator built.
type fakeRig struct {
	mu      sync.Mutex
	sources []*fakeSource
	openErr error
	playErr error
}

func (r *fakeRig) factory(ev Events) Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := &fakeSource{ev: ev, openErr: r.openErr, playErr: r.playErr}
	r.sources = append(r.sources, src)
	return src
}

func (r *fakeRig) last() *fakeSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[len(r.sources)-1]
}

func (r *fakeRig) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sources {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

func trackA() *model.Track {
	return &model.Track{ID: "a", Title: "Morning Calm", Text: "I am calm. I am strong.", AudioURL: "/static/audio/a.mp3"}
}

func trackB() *model.Track {
	return &model.Track{ID: "b", Title: "Deep Rest", Text: "I let go. I drift. I sleep.", AudioURL: "/static/audio/b.mp3"}
}

func TestCoordinatorTrackSwitching(t *testing.T) {
	Convey("Given a coordinator", t, func() {
		rig := &fakeRig{}
		c := NewCoordinator(rig.factory)

		Convey("Rapid play calls keep at most one source open, the most recent one", func() {
			So(c.Play(trackA()), ShouldBeNil)
			So(c.Play(trackB()), ShouldBeNil)
			So(c.Play(trackA()), ShouldBeNil)

			So(len(rig.sources), ShouldEqual, 3)
			So(rig.openCount(), ShouldEqual, 1)
			So(rig.last().isClosed(), ShouldBeFalse)
			So(rig.last().url, ShouldEqual, trackA().AudioURL)
			So(c.Snapshot().Track.ID, ShouldEqual, "a")
		})

		Convey("Events from a superseded source never touch the new binding", func() {
			So(c.Play(trackA()), ShouldBeNil)
			staleEvents := rig.last().ev

			So(c.Play(trackB()), ShouldBeNil)
			liveEvents := rig.last().ev
			liveEvents.OnDuration(20)
			liveEvents.OnTime(3)

			staleEvents.OnDuration(99)
			staleEvents.OnTime(55)
			staleEvents.OnEnded()

			snap := c.Snapshot()
			So(snap.Track.ID, ShouldEqual, "b")
			So(snap.Duration, ShouldEqual, 20)
			So(snap.Position, ShouldEqual, 3)
			So(snap.IsPlaying, ShouldBeTrue)
		})

		Convey("Re-playing the bound track coalesces instead of rebinding", func() {
			So(c.Play(trackA()), ShouldBeNil)
			rig.last().ev.OnDuration(30)
			rig.last().ev.OnTime(12)

			So(c.Play(trackA()), ShouldBeNil)

			So(len(rig.sources), ShouldEqual, 1)
			So(c.Snapshot().Position, ShouldEqual, 12)
		})
	})
}

func TestCoordinatorPauseResume(t *testing.T) {
	Convey("Given a playing track", t, func() {
		rig := &fakeRig{}
		c := NewCoordinator(rig.factory)
		So(c.Play(trackA()), ShouldBeNil)
		rig.last().ev.OnDuration(30)
		rig.last().ev.OnTime(12)

		Convey("Pause then resume preserves the position", func() {
			c.Pause()
			So(c.Snapshot().IsPlaying, ShouldBeFalse)
			So(c.Snapshot().Position, ShouldEqual, 12)

			So(c.Resume(), ShouldBeNil)
			snap := c.Snapshot()
			So(snap.IsPlaying, ShouldBeTrue)
			So(snap.Position, ShouldEqual, 12)
			So(len(rig.sources), ShouldEqual, 1)

			rig.last().ev.OnTime(12.5)
			So(c.Snapshot().Position, ShouldBeGreaterThanOrEqualTo, 12)
		})

		Convey("Pause is a no-op when nothing is playing", func() {
			c.Pause()
			c.Pause()
			So(c.Snapshot().IsPlaying, ShouldBeFalse)
		})

		Convey("Resume is a no-op while already playing", func() {
			So(c.Resume(), ShouldBeNil)
			So(c.Snapshot().Position, ShouldEqual, 12)
		})
	})
}

func TestCoordinatorStopAndEnded(t *testing.T) {
	Convey("Given a playing track", t, func() {
		rig := &fakeRig{}
		c := NewCoordinator(rig.factory)
		So(c.Play(trackA()), ShouldBeNil)
		rig.last().ev.OnDuration(30)
		rig.last().ev.OnTime(12)

		Convey("Stop releases the source and clears all state", func() {
			c.Stop()
			snap := c.Snapshot()
			So(snap.Track, ShouldBeNil)
			So(snap.IsPlaying, ShouldBeFalse)
			So(snap.Position, ShouldEqual, 0)
			So(snap.Duration, ShouldEqual, 0)
			So(rig.last().isClosed(), ShouldBeTrue)
		})

		Convey("A natural end without loop keeps the track bound, stopped at zero", func() {
			rig.last().ev.OnEnded()
			snap := c.Snapshot()
			So(snap.Track.ID, ShouldEqual, "a")
			So(snap.IsPlaying, ShouldBeFalse)
			So(snap.Position, ShouldEqual, 0)
		})

		Convey("With loop on, an ended event restarts playback at zero", func() {
			c.SetLoop(true)
			rig.last().ev.OnEnded()

			snap := c.Snapshot()
			So(snap.IsPlaying, ShouldBeTrue)
			So(snap.Position, ShouldEqual, 0)
			So(rig.last().seeks, ShouldContain, 0.0)
			So(rig.last().isClosed(), ShouldBeFalse)
		})
	})
}

func TestCoordinatorFailures(t *testing.T) {
	Convey("Given a coordinator over failing sources", t, func() {
		Convey("A load failure keeps the selection with playback paused", func() {
			rig := &fakeRig{openErr: errors.New("decode error")}
			c := NewCoordinator(rig.factory)

			err := c.Play(trackA())
			So(errors.Is(err, ErrMediaLoad), ShouldBeTrue)

			snap := c.Snapshot()
			So(snap.Track.ID, ShouldEqual, "a")
			So(snap.IsPlaying, ShouldBeFalse)
			So(snap.Error, ShouldNotBeEmpty)
		})

		Convey("A playback rejection keeps the selection with playback paused", func() {
			rig := &fakeRig{playErr: errors.New("not allowed")}
			c := NewCoordinator(rig.factory)

			err := c.Play(trackA())
			So(errors.Is(err, ErrPlaybackRejected), ShouldBeTrue)

			snap := c.Snapshot()
			So(snap.Track.ID, ShouldEqual, "a")
			So(snap.IsPlaying, ShouldBeFalse)
			So(snap.Error, ShouldNotBeEmpty)
		})

		Convey("An explicit retry after a load failure re-opens the source", func() {
			rig := &fakeRig{}
			c := NewCoordinator(rig.factory)

			So(c.Play(trackA()), ShouldBeNil)
			rig.last().ev.OnError(ErrMediaLoad)
			So(c.Snapshot().Error, ShouldNotBeEmpty)
			So(c.Snapshot().IsPlaying, ShouldBeFalse)

			So(c.Play(trackA()), ShouldBeNil)

			So(len(rig.sources), ShouldEqual, 2)
			So(rig.sources[0].isClosed(), ShouldBeTrue)
			So(rig.last().isClosed(), ShouldBeFalse)

			snap := c.Snapshot()
			So(snap.Track.ID, ShouldEqual, "a")
			So(snap.Error, ShouldBeEmpty)
			So(snap.IsPlaying, ShouldBeTrue)

			Convey("And the failed source's clock can no longer move the position", func() {
				rig.sources[0].ev.OnTime(9999)
				So(c.Snapshot().Position, ShouldEqual, 0)
			})
		})

		Convey("Resume after a load failure re-opens instead of waking the dead source", func() {
			rig := &fakeRig{}
			c := NewCoordinator(rig.factory)

			So(c.Play(trackA()), ShouldBeNil)
			rig.last().ev.OnError(ErrMediaLoad)

			So(c.Resume(), ShouldBeNil)

			So(len(rig.sources), ShouldEqual, 2)
			So(rig.sources[0].isClosed(), ShouldBeTrue)

			snap := c.Snapshot()
			So(snap.Error, ShouldBeEmpty)
			So(snap.IsPlaying, ShouldBeTrue)
		})
	})
}

func TestCoordinatorSeekAndSettings(t *testing.T) {
	Convey("Given a playing track with a known duration", t, func() {
		rig := &fakeRig{}
		c := NewCoordinator(rig.factory)
		So(c.Play(trackA()), ShouldBeNil)
		rig.last().mu.Lock()
		rig.last().dur = 30
		rig.last().mu.Unlock()
		rig.last().ev.OnDuration(30)

		Convey("Seek updates the position optimistically, clamped by the source", func() {
			c.Seek(12)
			So(c.Snapshot().Position, ShouldEqual, 12)

			c.Seek(500)
			So(c.Snapshot().Position, ShouldEqual, 30)

			c.Seek(-4)
			So(c.Snapshot().Position, ShouldEqual, 0)
		})

		Convey("The next authoritative tick overwrites an optimistic seek", func() {
			c.Seek(12)
			rig.last().ev.OnTime(12.7)
			So(c.Snapshot().Position, ShouldEqual, 12.7)
		})

		Convey("Loop and rate reach both the state and the source", func() {
			c.SetLoop(true)
			c.SetRate(1.5)

			snap := c.Snapshot()
			So(snap.Loop, ShouldBeTrue)
			So(snap.Rate, ShouldEqual, 1.5)
			So(rig.last().loop, ShouldBeTrue)
			So(rig.last().rate, ShouldEqual, 1.5)
		})

		Convey("A position tick past the known duration is clamped", func() {
			rig.last().ev.OnTime(31)
			So(c.Snapshot().Position, ShouldEqual, 30)
		})
	})
}

func TestCoordinatorEndToEnd(t *testing.T) {
	Convey("Playing a manifestation and ticking through it", t, func() {
		rig := &fakeRig{}
		c := NewCoordinator(rig.factory)

		t1 := &model.Track{ID: "t1", Title: "Calm", Text: "I am calm. I am strong.", AudioURL: "u1"}
		So(c.Play(t1), ShouldBeNil)
		rig.last().ev.OnDuration(10)
		rig.last().ev.OnTime(6)

		snap := c.Snapshot()
		So(snap.Track.ID, ShouldEqual, "t1")
		So(snap.Duration, ShouldEqual, 10)
		So(snap.Position, ShouldEqual, 6)
		So(snap.LineIndex, ShouldEqual, 1) // "I am strong"
	})
}

func TestCoordinatorSubscribe(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		rig := &fakeRig{}
		c := NewCoordinator(rig.factory)
		snaps, cancel := c.Subscribe()

		Convey("State changes produce snapshots", func() {
			defer cancel()
			So(c.Play(trackA()), ShouldBeNil)

			snap := <-snaps
			So(snap.Track.ID, ShouldEqual, "a")
			So(snap.IsPlaying, ShouldBeTrue)
		})

		Convey("Shutdown closes the channel after the final stop snapshot", func() {
			c.Shutdown()
			var last Snapshot
			for snap := range snaps {
				last = snap
			}
			So(last.Track, ShouldBeNil)
			So(last.IsPlaying, ShouldBeFalse)
		})

		Convey("Cancel after shutdown is safe", func() {
			c.Shutdown()
			cancel()
		})
	})
}
