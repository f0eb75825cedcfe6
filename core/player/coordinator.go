package player

import (
	"fmt"
	"sync"

	"stillfm/logger"
	"stillfm/model"
)

// Snapshot is the read-only view of playback state handed to observers.
// LineIndex is derived from position, duration and the track text on every
// snapshot; it is never stored.
type Snapshot struct {
	Track     *model.Track `json:"track"`
	IsPlaying bool         `json:"isPlaying"`
	Position  float64      `json:"position"`
	Duration  float64      `json:"duration"`
	Loop      bool         `json:"loop"`
	Rate      float64      `json:"rate"`
	LineIndex int          `json:"lineIndex"`
	Error     string       `json:"error,omitempty"`
}

// Coordinator owns the playback state for one listener session. At most one
// Source is open at any instant; binding a new track fully releases the
// previous source before the new one opens. All mutation goes through the
// Coordinator's operations — observers only read snapshots.
//
// Every source binding is tagged with a generation. Events delivered by a
// superseded source carry a stale generation and are silently discarded,
// so a late tick from a replaced track can never corrupt the state of the
// current one.
type Coordinator struct {
	newSource SourceFactory

	mu      sync.Mutex
	gen     uint64
	src     Source
	current *model.Track
	playing bool
	pos     float64
	dur     float64
	loop    bool
	rate    float64
	lastErr string

	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// NewCoordinator creates an empty coordinator. Sources are built through
// factory, once per track binding.
func NewCoordinator(factory SourceFactory) *Coordinator {
	return &Coordinator{
		newSource: factory,
		rate:      1.0,
		subs:      make(map[uint64]chan Snapshot),
	}
}

// Play binds track and starts playback. If track is already the current
// binding the call coalesces into a resume, preserving the position — this
// is what keeps re-navigation to an already-playing track from restarting
// it. Otherwise the previous source is released first, state is reset and a
// fresh source is opened on track.AudioURL.
//
// On a load or playback failure the track stays current with playback
// paused, so the selection is not lost and an explicit retry can follow.
// A retry never coalesces onto the failed source: it releases it and
// re-opens the track from scratch.
func (c *Coordinator) Play(track *model.Track) error {
	if track == nil || track.ID == "" {
		return fmt.Errorf("play: no track")
	}

	c.mu.Lock()
	if c.current != nil && c.current.ID == track.ID && c.src != nil && c.lastErr == "" {
		if c.playing {
			// Already playing or still loading this track; coalesce.
			c.mu.Unlock()
			return nil
		}
		src := c.src
		c.mu.Unlock()
		return c.resumeOn(src)
	}

	// Release the previous binding before the new source opens. Bumping the
	// generation first makes any in-flight event from the old source stale.
	c.gen++
	gen := c.gen
	if c.src != nil {
		c.src.Close()
		c.src = nil
	}

	bound := *track
	c.current = &bound
	c.playing = false
	c.pos = 0
	c.dur = 0
	c.lastErr = ""

	src := c.newSource(c.eventsFor(gen))
	src.SetLoop(c.loop)
	src.SetRate(c.rate)
	c.src = src
	c.mu.Unlock()

	logger.Info("player bind track",
		logger.String("trackId", track.ID),
		logger.String("title", track.Title))

	if err := src.Open(track.AudioURL); err != nil {
		c.reportFailure(gen, err)
		return fmt.Errorf("%w: %v", ErrMediaLoad, err)
	}
	if err := src.Play(); err != nil {
		c.reportFailure(gen, err)
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}

	c.mu.Lock()
	if gen == c.gen {
		c.playing = true
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
	return nil
}

// Pause suspends playback. No-op when nothing is playing.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	if !c.playing || c.src == nil {
		c.mu.Unlock()
		return
	}
	c.src.Pause()
	c.playing = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// Resume continues playback of the current track without re-opening the
// source, preserving the position. No-op when nothing is bound or playback
// is already running. After a failure the source is dead; resuming re-opens
// the track instead.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	if c.current == nil || c.playing || c.src == nil {
		c.mu.Unlock()
		return nil
	}
	if c.lastErr != "" {
		track := c.current
		c.mu.Unlock()
		return c.Play(track)
	}
	src := c.src
	c.mu.Unlock()
	return c.resumeOn(src)
}

func (c *Coordinator) resumeOn(src Source) error {
	if err := src.Play(); err != nil {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()
		c.reportFailure(gen, err)
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}
	c.mu.Lock()
	if c.src == src {
		c.playing = true
		c.lastErr = ""
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
	return nil
}

// Stop releases the source and clears the whole state. Used on explicit
// stop actions and session teardown; page navigation must never call it.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.gen++
	if c.src != nil {
		c.src.Close()
		c.src = nil
	}
	c.current = nil
	c.playing = false
	c.pos = 0
	c.dur = 0
	c.lastErr = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// Shutdown stops playback and closes every subscriber channel. Called by
// the manager on session teardown; the coordinator must not be reused
// afterwards.
func (c *Coordinator) Shutdown() {
	c.Stop()
	c.mu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
}

// Seek forwards to the source and updates the position optimistically; the
// next authoritative tick overwrites it, so transient jitter self-corrects.
func (c *Coordinator) Seek(position float64) {
	c.mu.Lock()
	if c.src == nil {
		c.mu.Unlock()
		return
	}
	c.pos = c.src.Seek(position)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// SetLoop updates the loop flag and forwards it to the source.
func (c *Coordinator) SetLoop(loop bool) {
	c.mu.Lock()
	c.loop = loop
	if c.src != nil {
		c.src.SetLoop(loop)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// SetRate updates the playback speed multiplier and forwards it to the
// source. Non-positive rates are ignored.
func (c *Coordinator) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.rate = rate
	if c.src != nil {
		c.src.SetRate(rate)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// Snapshot returns the current state with the derived line index.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer. The returned channel receives a snapshot
// after every state change; slow observers miss intermediate snapshots
// rather than blocking the player. The cancel func unregisters and closes
// the channel.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 8)
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// eventsFor binds source callbacks to a generation so events from a
// superseded source are discarded.
func (c *Coordinator) eventsFor(gen uint64) Events {
	return Events{
		OnTime:     func(pos float64) { c.onTime(gen, pos) },
		OnDuration: func(dur float64) { c.onDuration(gen, dur) },
		OnEnded:    func() { c.onEnded(gen) },
		OnError:    func(err error) { c.reportFailure(gen, err) },
	}
}

func (c *Coordinator) onTime(gen uint64, pos float64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.dur > 0 && pos > c.dur {
		pos = c.dur
	}
	c.pos = pos
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

func (c *Coordinator) onDuration(gen uint64, dur float64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.dur = dur
	if c.pos > dur {
		c.pos = dur
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// onEnded handles a natural end of playback. With loop enabled on a source
// that surfaces ended anyway, the coordinator re-seeks and replays; without
// loop the track stays bound, stopped at position zero, ready to replay.
func (c *Coordinator) onEnded(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.loop && c.src != nil {
		src := c.src
		c.pos = 0
		c.playing = true
		snap := c.snapshotLocked()
		c.mu.Unlock()
		src.Seek(0)
		if err := src.Play(); err != nil {
			c.reportFailure(gen, err)
			return
		}
		c.broadcast(snap)
		return
	}
	c.playing = false
	c.pos = 0
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.broadcast(snap)
}

// reportFailure records a source failure. The track stays current with
// playback paused; the error travels to observers as a state flag, never
// as a panic through rendering code.
func (c *Coordinator) reportFailure(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.playing = false
	c.lastErr = err.Error()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	logger.Warn("playback failure", logger.ErrorField(err))
	c.broadcast(snap)
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		IsPlaying: c.playing,
		Position:  c.pos,
		Duration:  c.dur,
		Loop:      c.loop,
		Rate:      c.rate,
		LineIndex: NoLine,
		Error:     c.lastErr,
	}
	if c.current != nil {
		track := *c.current
		snap.Track = &track
		snap.LineIndex = LineIndex(track.Text, c.pos, c.dur)
	}
	return snap
}

// broadcast fans the snapshot out to all subscribers. Sends are
// non-blocking, so holding the lock keeps cancel from closing a channel
// mid-send without ever stalling the player.
func (c *Coordinator) broadcast(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Buffer full; the observer catches up on the next snapshot.
		}
	}
}
