package player

import (
	"context"
	"sync"
	"time"

	"stillfm/logger"
)

// ProbeFunc resolves the duration in seconds of the resource at url.
// It runs asynchronously after Open; a failure is surfaced as ErrMediaLoad.
type ProbeFunc func(ctx context.Context, url string) (float64, error)

const defaultTick = 250 * time.Millisecond

// ClockSource is the production Source. The server does not decode audio;
// it advances a playback clock in real time (scaled by rate) against the
// duration reported by the probe, and emits position ticks to the
// Coordinator. Looping is handled internally: the position wraps to zero
// and no ended event is surfaced.
type ClockSource struct {
	events Events
	probe  ProbeFunc
	tick   time.Duration

	mu      sync.Mutex
	opened  bool
	closed  bool
	playing bool
	pos     float64
	dur     float64
	loop    bool
	rate    float64

	cancel context.CancelFunc
}

// NewClockSource creates a clock-driven source resolving durations via probe.
func NewClockSource(ev Events, probe ProbeFunc) *ClockSource {
	return &ClockSource{
		events: ev,
		probe:  probe,
		tick:   defaultTick,
		rate:   1.0,
	}
}

// Open starts resolving the resource metadata and the tick loop.
func (s *ClockSource) Open(url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSourceClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrPlaybackRejected
	}
	s.opened = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.resolveDuration(ctx, url)
	go s.run(ctx)
	return nil
}

func (s *ClockSource) resolveDuration(ctx context.Context, url string) {
	dur, err := s.probe(ctx, url)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("audio probe failed", logger.String("url", url), logger.ErrorField(err))
		if s.events.OnError != nil {
			s.events.OnError(ErrMediaLoad)
		}
		return
	}

	s.mu.Lock()
	s.dur = dur
	s.mu.Unlock()

	if s.events.OnDuration != nil {
		s.events.OnDuration(dur)
	}
}

// run advances the clock while playing and emits position ticks.
func (s *ClockSource) run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now

			s.mu.Lock()
			if !s.playing {
				s.mu.Unlock()
				continue
			}
			s.pos += elapsed * s.rate

			ended := false
			if s.dur > 0 && s.pos >= s.dur {
				if s.loop {
					s.pos = 0
				} else {
					s.pos = s.dur
					s.playing = false
					ended = true
				}
			}
			pos := s.pos
			s.mu.Unlock()

			if s.events.OnTime != nil {
				s.events.OnTime(pos)
			}
			if ended && s.events.OnEnded != nil {
				s.events.OnEnded()
			}
		}
	}
}

// Play starts or resumes the clock.
func (s *ClockSource) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.opened {
		return ErrSourceClosed
	}
	s.playing = true
	return nil
}

// Pause suspends the clock, keeping the position.
func (s *ClockSource) Pause() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
}

// Seek clamps the position to [0, duration] and returns the clamped value.
func (s *ClockSource) Seek(position float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 0 {
		position = 0
	}
	if s.dur > 0 && position > s.dur {
		position = s.dur
	}
	s.pos = position
	return position
}

// SetLoop toggles looping. Takes effect on the next tick.
func (s *ClockSource) SetLoop(loop bool) {
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
}

// SetRate sets the clock speed multiplier. Non-positive values are ignored.
func (s *ClockSource) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
}

// Close stops the clock and releases the source. Safe to call repeatedly.
func (s *ClockSource) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.playing = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
