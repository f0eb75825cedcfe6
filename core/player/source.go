package player

import "errors"

var (
	// ErrMediaLoad indicates the audio resource could not be opened or decoded.
	ErrMediaLoad = errors.New("media load failed")

	// ErrPlaybackRejected indicates the runtime declined to start playback.
	// It is surfaced like ErrMediaLoad but must never be retried automatically.
	ErrPlaybackRejected = errors.New("playback rejected")

	// ErrSourceClosed indicates an operation on a source that was already released.
	ErrSourceClosed = errors.New("source closed")
)

// Events carries the callbacks a Source emits while a resource is bound.
// Nil callbacks are allowed and skipped. Callbacks are invoked from the
// source's own goroutine without any source lock held.
type Events struct {
	// OnTime reports the playback position in seconds at the source's
	// natural tick granularity.
	OnTime func(position float64)
	// OnDuration fires once, when the resource metadata resolves.
	OnDuration func(duration float64)
	// OnEnded fires when playback reaches the end. Not fired while looping.
	OnEnded func()
	// OnError reports an asynchronous load or playback failure.
	OnError func(err error)
}

// Source owns exactly one underlying playable media resource between Open
// and Close. All playback flows through the Coordinator; no other component
// may hold a Source directly.
type Source interface {
	// Open begins loading the resource. Loading is asynchronous: duration
	// and failures arrive via Events. A source can be opened once.
	Open(url string) error

	// Play requests playback to start or continue. Completion is observed
	// through OnTime events, not the return value.
	Play() error

	// Pause suspends playback, keeping the position.
	Pause()

	// Seek moves to the given position in seconds, clamped to [0, duration].
	// The clamped position is returned.
	Seek(position float64) float64

	// SetLoop toggles looping. Buffered if nothing is open yet.
	SetLoop(loop bool)

	// SetRate sets the playback speed multiplier. Buffered if nothing is
	// open yet. Non-positive values are ignored.
	SetRate(rate float64)

	// Close stops playback and releases the resource. Idempotent.
	Close()
}

// SourceFactory builds a fresh Source wired to the given event sinks.
// The Coordinator calls it once per track binding.
type SourceFactory func(ev Events) Source
