package vfs

import (
	"github.com/tetratelabs/hostvfs/api"
	"github.com/tetratelabs/hostvfs/internal/hostfs"
)

// Handle is one open file as seen by the engine.
type Handle struct {
	// Identity is the guest address of the engine's sqlite3_file, stable
	// while the file is open.
	Identity uint32

	// FD is the host descriptor.
	FD hostfs.FD

	// Path is the name the file was opened with.
	//
	// Note: xTruncate and xClose (for delete-on-close) act on this path, so
	// they affect the wrong file if it was renamed since open.
	Path string

	// Flags are the xOpen flags as requested.
	Flags api.OpenFlag

	// Lock is the last level set by xLock or xUnlock. Transitions are not
	// validated and nothing is enforced across processes.
	Lock api.LockLevel
}

// handleTable maps identities to open handles. The zero value is empty.
type handleTable struct {
	handles map[uint32]*Handle
}

func (t *handleTable) insert(h *Handle) {
	if t.handles == nil {
		t.handles = map[uint32]*Handle{}
	}
	t.handles[h.Identity] = h
}

func (t *handleTable) lookup(identity uint32) (*Handle, bool) {
	h, ok := t.handles[identity]
	return h, ok
}

func (t *handleTable) delete(identity uint32) {
	delete(t.handles, identity)
}

func (t *handleTable) count() int {
	return len(t.handles)
}

// drain removes and returns every handle.
func (t *handleTable) drain() (handles []*Handle) {
	for _, h := range t.handles {
		handles = append(handles, h)
	}
	t.handles = nil
	return
}
