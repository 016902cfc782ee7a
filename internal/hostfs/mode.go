package hostfs

import (
	"fmt"
	"os"
)

// Mode is the string open flag of the host API, in the style of fopen.
type Mode string

const (
	// ModeRead opens an existing file for reading.
	ModeRead Mode = "r"
	// ModeReadWrite opens an existing file for reading and writing.
	ModeReadWrite Mode = "r+"
	// ModeWrite creates or truncates a file for writing.
	ModeWrite Mode = "w"
	// ModeWriteRead creates or truncates a file for reading and writing.
	ModeWriteRead Mode = "w+"
	// ModeWriteExclusive is ModeWrite, failing if the file exists.
	ModeWriteExclusive Mode = "wx"
	// ModeWriteReadExclusive is ModeWriteRead, failing if the file exists.
	ModeWriteReadExclusive Mode = "wx+"
	// ModeAppend creates a file if absent and appends every write.
	ModeAppend Mode = "a"
	// ModeAppendRead is ModeAppend that also allows reading.
	ModeAppendRead Mode = "a+"
	// ModeAppendExclusive is ModeAppend, failing if the file exists.
	ModeAppendExclusive Mode = "ax"
	// ModeAppendReadExclusive is ModeAppendRead, failing if the file exists.
	ModeAppendReadExclusive Mode = "ax+"
)

// modeFlags is the os.OpenFile translation of a Mode. O_APPEND is not passed
// to the backing file as append is applied per write.
type modeFlags struct {
	flag     int
	readable bool
	writable bool
	append   bool
}

// parseMode returns the os.OpenFile flags for m, or an error if the mode is
// not one of the defined constants.
func parseMode(m Mode) (modeFlags, error) {
	switch m {
	case ModeRead:
		return modeFlags{flag: os.O_RDONLY, readable: true}, nil
	case ModeReadWrite:
		return modeFlags{flag: os.O_RDWR, readable: true, writable: true}, nil
	case ModeWrite:
		return modeFlags{flag: os.O_WRONLY | os.O_CREATE | os.O_TRUNC, writable: true}, nil
	case ModeWriteRead:
		return modeFlags{flag: os.O_RDWR | os.O_CREATE | os.O_TRUNC, readable: true, writable: true}, nil
	case ModeWriteExclusive:
		return modeFlags{flag: os.O_WRONLY | os.O_CREATE | os.O_EXCL, writable: true}, nil
	case ModeWriteReadExclusive:
		return modeFlags{flag: os.O_RDWR | os.O_CREATE | os.O_EXCL, readable: true, writable: true}, nil
	case ModeAppend:
		return modeFlags{flag: os.O_WRONLY | os.O_CREATE, writable: true, append: true}, nil
	case ModeAppendRead:
		return modeFlags{flag: os.O_RDWR | os.O_CREATE, readable: true, writable: true, append: true}, nil
	case ModeAppendExclusive:
		return modeFlags{flag: os.O_WRONLY | os.O_CREATE | os.O_EXCL, writable: true, append: true}, nil
	case ModeAppendReadExclusive:
		return modeFlags{flag: os.O_RDWR | os.O_CREATE | os.O_EXCL, readable: true, writable: true, append: true}, nil
	}
	return modeFlags{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, string(m))
}
