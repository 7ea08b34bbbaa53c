// Package media abstracts the single audio output the player drives.
package media

import "context"

// Listener receives playback callbacks from an Element. Callbacks may
// arrive on any goroutine.
type Listener interface {
	OnTimeUpdate(position float64)
	OnLoadedMetadata(duration float64)
	OnEnded()
}

// Element is an audio output with a single current source. Times are in
// seconds; volume is a fraction in [0, 1].
type Element interface {
	Load(url string) error
	Play(ctx context.Context) error
	Pause() error
	// Stop unloads the current source
	Stop() error
	CurrentTime() float64
	SetCurrentTime(seconds float64) error
	SetVolume(fraction float64) error
	SetListener(l Listener)
	Close() error
}
