package hostvfs

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero/sys"

	"github.com/tetratelabs/hostvfs/internal/vfs"
)

const (
	// DefaultName is the sqlite3_vfs.zName registered by default.
	DefaultName = "hostvfs"

	// DefaultModuleName is the host module the functions are exported from,
	// matching the import module of an Emscripten or wasi-sdk build.
	DefaultModuleName = "env"

	// DefaultMaxPathname is the default sqlite3_vfs.mxPathname.
	DefaultMaxPathname = vfs.DefaultMaxPathname
)

// Config controls Instantiate, with the default implementation as NewConfig.
//
// Config is immutable: each With method returns a new instance including the
// corresponding change.
type Config struct {
	name         string
	moduleName   string
	maxPathname  uint32
	ioMethods    uint32
	fs           afero.Fs
	writableRoot string
	randSource   io.Reader
	walltime     sys.Walltime
	nanosleep    sys.Nanosleep
	logger       logrus.FieldLogger
}

// NewConfig returns a Config over the real filesystem, named DefaultName and
// exported as DefaultModuleName.
func NewConfig() *Config {
	return &Config{
		name:        DefaultName,
		moduleName:  DefaultModuleName,
		maxPathname: DefaultMaxPathname,
		fs:          afero.NewOsFs(),
	}
}

// clone makes a shallow copy, so that With methods never mutate the receiver.
func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// WithName sets the VFS name reported by Descriptor. Defaults to DefaultName.
func (c *Config) WithName(name string) *Config {
	ret := c.clone()
	ret.name = name
	return ret
}

// WithModuleName sets the name of the host module exporting the VFS
// functions. Defaults to DefaultModuleName.
func (c *Config) WithModuleName(moduleName string) *Config {
	ret := c.clone()
	ret.moduleName = moduleName
	return ret
}

// WithMaxPathname sets sqlite3_vfs.mxPathname, the longest file name read
// from the guest. Zero restores DefaultMaxPathname.
func (c *Config) WithMaxPathname(maxPathname uint32) *Config {
	ret := c.clone()
	if maxPathname == 0 {
		maxPathname = DefaultMaxPathname
	}
	ret.maxPathname = maxPathname
	return ret
}

// WithIOMethods sets the guest address of the sqlite3_io_methods table.
// When non-zero, xOpen stores it in the first field of each sqlite3_file,
// so that the guest need not assign it after the call.
func (c *Config) WithIOMethods(ptr uint32) *Config {
	ret := c.clone()
	ret.ioMethods = ptr
	return ret
}

// WithFS sets the host filesystem. Defaults to afero.NewOsFs.
//
// To confine the guest to a directory, use afero.NewBasePathFs.
func (c *Config) WithFS(fs afero.Fs) *Config {
	ret := c.clone()
	ret.fs = fs
	return ret
}

// WithWritableRoot sets the only path prefix xAccess reports as writable.
// Files opened without a name are created under it. Defaults to "", which
// means every path.
func (c *Config) WithWritableRoot(root string) *Config {
	ret := c.clone()
	ret.writableRoot = root
	return ret
}

// WithRandSource sets the source of xRandomness. Defaults to a pseudo-random
// generator seeded at instantiation.
//
// Note: The engine seeds its own generator from this, so a deterministic
// reader gives reproducible temporary names.
func (c *Config) WithRandSource(source io.Reader) *Config {
	ret := c.clone()
	ret.randSource = source
	return ret
}

// WithWalltime sets the clock of xCurrentTime and xCurrentTimeInt64.
// Defaults to the real clock.
func (c *Config) WithWalltime(walltime sys.Walltime) *Config {
	ret := c.clone()
	ret.walltime = walltime
	return ret
}

// WithNanosleep sets the sleep used by xSleep. Defaults to nil, in which
// case xSleep returns zero immediately.
func (c *Config) WithNanosleep(nanosleep sys.Nanosleep) *Config {
	ret := c.clone()
	ret.nanosleep = nanosleep
	return ret
}

// WithLogger sets the logger of VFS calls. Defaults to discarding output.
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	ret := c.clone()
	ret.logger = logger
	return ret
}
