package hostvfs

import (
	"github.com/tetratelabs/hostvfs/internal/vfs"
)

const (
	// VFSVersion is sqlite3_vfs.iVersion: xCurrentTimeInt64 is present, but
	// not the system call overrides of version 3.
	VFSVersion = 2

	// IOVersion is sqlite3_io_methods.iVersion: there is no shared memory or
	// memory mapping.
	IOVersion = 1

	// OSFileSize is sqlite3_vfs.szOsFile. The engine's sqlite3_file only
	// holds the methods pointer, as state is kept on the host.
	OSFileSize = 4
)

// Descriptor is the static record the engine registers the VFS with.
type Descriptor struct {
	// Name is sqlite3_vfs.zName.
	Name string

	// Version is sqlite3_vfs.iVersion.
	Version int32

	// MaxPathname is sqlite3_vfs.mxPathname.
	MaxPathname uint32

	// OSFileSize is sqlite3_vfs.szOsFile.
	OSFileSize uint32

	// IOVersion is sqlite3_io_methods.iVersion.
	IOVersion int32

	// DeviceCharacteristics is returned by xDeviceCharacteristics for every
	// file.
	DeviceCharacteristics uint32

	// SectorSize is returned by xSectorSize for every file.
	SectorSize int32
}

func newDescriptor(c *Config) Descriptor {
	return Descriptor{
		Name:                  c.name,
		Version:               VFSVersion,
		MaxPathname:           c.maxPathname,
		OSFileSize:            OSFileSize,
		IOVersion:             IOVersion,
		DeviceCharacteristics: vfs.DeviceCharacteristics,
		SectorSize:            vfs.SectorSize,
	}
}
