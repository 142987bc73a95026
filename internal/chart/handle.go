package chart

import "sync"

// Handle owns at most one live chart instance.
type Handle struct {
	mu      sync.Mutex
	current *Instance
}

// NewHandle returns an empty handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Current returns the attached instance, or nil.
func (h *Handle) Current() *Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Replace destroys the attached instance, if any, then attaches inst.
// Passing nil leaves the handle empty.
func (h *Handle) Replace(inst *Instance) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil && h.current != inst {
		h.current.Destroy()
	}
	h.current = inst
}

// Destroy destroys the attached instance and empties the handle.
func (h *Handle) Destroy() {
	h.Replace(nil)
}
