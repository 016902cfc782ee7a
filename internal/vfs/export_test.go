package vfs

// Lookup returns a copy of the handle for identity, if open, for testing
// purposes.
func (a *Adapter) Lookup(identity uint32) (Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if h, ok := a.handles.lookup(identity); ok {
		return *h, true
	}
	return Handle{}, false
}

// Pending returns true if a message was set and not yet drained, for testing
// purposes.
func (s *ErrorState) Pending() bool {
	return s.pending
}
