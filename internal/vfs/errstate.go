package vfs

// ErrorState is the single-slot record of the last failure, returned to the
// engine by xGetLastError. The status code travels separately, as the return
// value of each call.
//
// The zero value is empty.
type ErrorState struct {
	message string
	pending bool
}

// Clear discards any pending message.
func (s *ErrorState) Clear() {
	s.message, s.pending = "", false
}

// Set records err, replacing any pending message.
func (s *ErrorState) Set(err error) {
	s.message, s.pending = err.Error(), true
}

// Drain returns the pending message, if any, and clears it.
func (s *ErrorState) Drain() (message string, ok bool) {
	message, ok = s.message, s.pending
	s.Clear()
	return
}
