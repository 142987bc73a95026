// Package chart renders the speed-over-time line chart and owns the lifecycle
// of rendered chart instances.
package chart

import (
	"sync"
	"time"
)

// Instance is one rendered chart. Zero or one instance is attached to a
// display at a time; replacing it must go through a Handle. Points counts the
// series points actually plotted.
type Instance struct {
	ID        string
	Label     string
	Points    int
	Width     int
	Height    int
	CreatedAt time.Time

	mu        sync.Mutex
	png       []byte
	destroyed bool
	onDestroy func()
}

// PNG returns the encoded image, or nil once the instance is destroyed.
func (i *Instance) PNG() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.png
}

// Destroyed reports whether Destroy has been called.
func (i *Instance) Destroyed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}

// Destroy releases the rendered image. It is safe to call more than once.
func (i *Instance) Destroy() {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.destroyed = true
	i.png = nil
	cb := i.onDestroy
	i.mu.Unlock()

	if cb != nil {
		cb()
	}
}
