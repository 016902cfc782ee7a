// Package hostfs is the synchronous host filesystem consumed by the VFS
// adapter. Its shape is deliberately narrow: files are opened by path with a
// string mode, addressed by descriptor, truncated and removed by path, and
// there is no locking, flushing or directory sync.
package hostfs

import (
	"errors"
	"io/fs"
	"time"
)

// FD is a host file descriptor returned by OpenSync.
type FD int32

// Stat is the subset of file status returned by FstatSync.
type Stat struct {
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// ReadRequest reads up to Length bytes at file Position into
// ArrayBuffer[Offset:Offset+Length].
type ReadRequest struct {
	FD          FD
	ArrayBuffer []byte
	Offset      int
	Length      int
	Position    int64
}

// WriteRequest writes Data[Offset:Offset+Length] at file Position. Position
// is ignored for files opened in an append mode.
type WriteRequest struct {
	FD       FD
	Data     []byte
	Offset   int
	Length   int
	Position int64
}

// FS is the host filesystem.
//
// # Errors
//
// Failures are returned as *fs.PathError whose Op is the method name in
// lower camel case, e.g. "openSync". Reaching end-of-file is not an error.
type FS interface {
	// AccessSync returns nil if path exists.
	AccessSync(path string) error

	// OpenSync opens path according to the mode. See Mode for the semantics
	// of each value.
	OpenSync(path string, mode Mode) (FD, error)

	// CloseSync closes the descriptor.
	CloseSync(fd FD) error

	// ReadSync returns the count of bytes read, which is less than the
	// requested length when the range extends past end-of-file.
	ReadSync(req ReadRequest) (bytesRead int, err error)

	// WriteSync returns the count of bytes written.
	WriteSync(req WriteRequest) (bytesWritten int, err error)

	// FstatSync returns the status of an open descriptor.
	FstatSync(fd FD) (Stat, error)

	// TruncateSync changes the size of the file at path, extending it with
	// zeros when length is larger than the current size.
	TruncateSync(path string, length int64) error

	// UnlinkSync removes the file at path. Directories are not removed.
	UnlinkSync(path string) error
}

var (
	// ErrBadDescriptor is returned for a descriptor that is not open, or not
	// open for the requested direction.
	ErrBadDescriptor = errors.New("bad file descriptor")

	// ErrInvalidArgument is returned for negative positions and buffer
	// ranges that do not fit their slice.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIsDirectory is returned when unlinking a directory.
	ErrIsDirectory = errors.New("is a directory")
)
