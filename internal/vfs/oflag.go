package vfs

import (
	"errors"
	"fmt"

	"github.com/tetratelabs/hostvfs/api"
	"github.com/tetratelabs/hostvfs/internal/hostfs"
)

// ErrInvalidOpenFlags is returned for a flag combination the engine never
// issues: a caller bug rather than a runtime condition.
var ErrInvalidOpenFlags = errors.New("invalid open flags")

// toHostMode maps xOpen flags to the host open mode. Only the access bits
// matter here; file type bits such as api.OpenMainDB are ignored.
//
// api.OpenCreate maps to hostfs.ModeAppendRead, which creates the file if
// absent but appends every write. Callers must re-open the result with
// hostfs.ModeReadWrite before positioned writes. See Adapter.openNative.
func toHostMode(flags api.OpenFlag) (hostfs.Mode, error) {
	readOnly := flags&api.OpenReadOnly != 0
	readWrite := flags&api.OpenReadWrite != 0
	create := flags&api.OpenCreate != 0
	exclusive := flags&api.OpenExclusive != 0
	deleteOnClose := flags&api.OpenDeleteOnClose != 0

	switch {
	case readOnly == readWrite:
		return "", fmt.Errorf("%w %#x: exactly one of READONLY or READWRITE is required", ErrInvalidOpenFlags, flags)
	case create && !readWrite:
		return "", fmt.Errorf("%w %#x: CREATE requires READWRITE", ErrInvalidOpenFlags, flags)
	case exclusive && !create:
		return "", fmt.Errorf("%w %#x: EXCLUSIVE requires CREATE", ErrInvalidOpenFlags, flags)
	case deleteOnClose && !create:
		return "", fmt.Errorf("%w %#x: DELETEONCLOSE requires CREATE", ErrInvalidOpenFlags, flags)
	}

	switch {
	case exclusive:
		// EXCLUSIVE means "the file must not exist yet", not exclusive access.
		return hostfs.ModeWriteReadExclusive, nil
	case create:
		return hostfs.ModeAppendRead, nil
	case readWrite:
		return hostfs.ModeReadWrite, nil
	default:
		return hostfs.ModeRead, nil
	}
}
