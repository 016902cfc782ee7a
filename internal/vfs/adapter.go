// Package vfs implements the sqlite3_vfs and sqlite3_io_methods contract over
// a hostfs.FS. Methods take guest pointers and return api.ResultCode; every
// host fault is recorded in the adapter's ErrorState and mapped to a result
// code, so nothing unwinds into the guest.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero/sys"

	"github.com/tetratelabs/hostvfs/api"
	"github.com/tetratelabs/hostvfs/internal/hostfs"
)

const (
	// DefaultMaxPathname is the sqlite3_vfs.mxPathname of the adapter.
	DefaultMaxPathname = 1024

	// SectorSize is returned by xSectorSize. The host offers no way to query
	// the real block size.
	SectorSize = 2048

	// DeviceCharacteristics is returned by xDeviceCharacteristics.
	DeviceCharacteristics = api.IOCapUndeletableWhenOpen

	// sharedBufferLimit is the guest memory size at and above which xWrite
	// copies out the source range instead of handing the host a view of the
	// whole memory.
	sharedBufferLimit = 10 << 20

	// tempNameLen is the length of generated names for files opened without
	// one.
	tempNameLen      = 16
	tempNameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	errUnknownHandle = errors.New("unknown file handle")
	errHandleInUse   = errors.New("file handle already open")
	errOutOfRange    = errors.New("guest memory access out of range")
	errInvalidName   = errors.New("invalid file name")
)

// Options configure New. Zero values select the defaults documented per field.
type Options struct {
	// FS is the host filesystem. Required.
	FS hostfs.FS

	// MaxPathname bounds file names read from the guest. Defaults to
	// DefaultMaxPathname.
	MaxPathname uint32

	// IOMethods is the guest address of the sqlite3_io_methods table. When
	// non-zero, xOpen stores it as the first field of the sqlite3_file.
	IOMethods uint32

	// WritableRoot is the only path prefix xAccess reports as writable, and
	// where files opened without a name are created. Empty means the whole
	// filesystem.
	WritableRoot string

	// RandSource is the reference randomness source. When set, xRandomness
	// reads from it and the fallback pseudo-random generator is never used.
	RandSource io.Reader

	// Walltime is the clock of xCurrentTime. Defaults to time.Now.
	Walltime sys.Walltime

	// Nanosleep is the reference sleep. When nil, xSleep returns immediately.
	Nanosleep sys.Nanosleep

	// Logger defaults to a logger that discards output.
	Logger logrus.FieldLogger
}

// Adapter implements the VFS and I/O methods. It is safe for concurrent use:
// one mutex guards the handle table, lock levels and the error slot.
type Adapter struct {
	fs           hostfs.FS
	log          logrus.FieldLogger
	maxPathname  uint32
	ioMethods    uint32
	writableRoot string
	walltime     sys.Walltime
	nanosleep    sys.Nanosleep
	randomness   func([]byte) int

	mu      sync.Mutex
	lastErr ErrorState
	handles handleTable
}

// New returns an Adapter or an error if opts.FS is nil.
func New(opts Options) (*Adapter, error) {
	if opts.FS == nil {
		return nil, errors.New("vfs: nil host filesystem")
	}
	a := &Adapter{
		fs:           opts.FS,
		log:          opts.Logger,
		maxPathname:  opts.MaxPathname,
		ioMethods:    opts.IOMethods,
		writableRoot: opts.WritableRoot,
		walltime:     opts.Walltime,
		nanosleep:    opts.Nanosleep,
	}
	if a.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		a.log = l
	}
	if a.maxPathname == 0 {
		a.maxPathname = DefaultMaxPathname
	}
	if a.walltime == nil {
		a.walltime = walltime
	}
	if src := opts.RandSource; src != nil {
		a.randomness = func(p []byte) int {
			n, _ := io.ReadFull(src, p)
			return n
		}
	} else {
		a.randomness = fallbackRandomness(time.Now().UnixNano())
	}
	return a, nil
}

// OpenFiles returns the count of files currently open.
func (a *Adapter) OpenFiles() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handles.count()
}

// Close closes every file the engine left open, honoring delete-on-close.
func (a *Adapter) Close() (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.handles.drain() {
		if cerr := a.closeNative(h); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return
}

// begin starts a public operation: it takes the lock and clears the error
// slot, so a message is never attributed to a later call. Callers unlock.
func (a *Adapter) begin() {
	a.mu.Lock()
	a.lastErr.Clear()
}

// fail records err and returns rc.
func (a *Adapter) fail(rc api.ResultCode, method string, err error) api.ResultCode {
	a.lastErr.Set(err)
	a.log.WithError(err).Debugf("%s: %s", method, api.ResultCodeName(rc))
	return rc
}

func (a *Adapter) lookup(identity uint32) (*Handle, error) {
	if h, ok := a.handles.lookup(identity); ok {
		return h, nil
	}
	a.log.WithField("identity", identity).Warn(errUnknownHandle)
	return nil, fmt.Errorf("%w %#x", errUnknownHandle, identity)
}

// openNative opens name on the host. Create mode is an append stream on the
// host, but the engine addresses writes by offset, so the file is created by
// the first open and re-opened read-write by the second. The first is closed
// before returning, whatever the outcome.
func (a *Adapter) openNative(name string, mode hostfs.Mode) (hostfs.FD, error) {
	fd, err := a.fs.OpenSync(name, mode)
	if err != nil || mode != hostfs.ModeAppendRead {
		return fd, err
	}

	rw, err := a.fs.OpenSync(name, hostfs.ModeReadWrite)
	if cerr := a.fs.CloseSync(fd); cerr != nil {
		if err == nil {
			_ = a.fs.CloseSync(rw)
		}
		return 0, errors.Join(err, cerr)
	}
	return rw, err
}

// closeNative closes the host descriptor and, for delete-on-close files,
// removes the path even if the close failed.
func (a *Adapter) closeNative(h *Handle) error {
	err := a.fs.CloseSync(h.FD)
	if h.Flags&api.OpenDeleteOnClose != 0 {
		err = errors.Join(err, a.fs.UnlinkSync(h.Path))
	}
	return err
}

// tempFilename returns a random name for files opened without one.
func (a *Adapter) tempFilename() string {
	b := make([]byte, tempNameLen)
	a.randomness(b)
	for i, c := range b {
		b[i] = tempNameAlphabet[int(c)%len(tempNameAlphabet)]
	}
	if a.writableRoot == "" {
		return string(b)
	}
	return path.Join(a.writableRoot, string(b))
}

// fallbackRandomness is the pseudo-random source used when no reference
// source is configured. It is not cryptographically secure, and does not
// need to be: the engine only uses it for temporary names and seeds.
func fallbackRandomness(seed int64) func([]byte) int {
	r := rand.New(rand.NewSource(seed))
	return func(p []byte) int {
		n, _ := r.Read(p)
		return n
	}
}

func walltime() (sec int64, nsec int32) {
	t := time.Now()
	return t.Unix(), int32(t.Nanosecond())
}
