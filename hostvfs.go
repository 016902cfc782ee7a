// Package hostvfs exports the sqlite3_vfs and sqlite3_io_methods of a SQLite
// build compiled to WebAssembly as wazero host functions, backed by a host
// filesystem.
//
// The guest declares a VFS whose methods are imports of the module named by
// Config.WithModuleName, then registers it with sqlite3_vfs_register. Each
// import takes the guest pointers and offsets of the C signature, minus any
// trailing dynamic library hooks.
//
// See https://www.sqlite.org/vfs.html
package hostvfs

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/tetratelabs/wazero"
	wazeroapi "github.com/tetratelabs/wazero/api"

	"github.com/tetratelabs/hostvfs/api"
	"github.com/tetratelabs/hostvfs/internal/hostfs"
	"github.com/tetratelabs/hostvfs/internal/vfs"
)

// wazeroapi.Memory is passed to the adapter as-is.
var _ vfs.Memory = wazeroapi.Memory(nil)

// VFS is an instantiated host module. Close it to release the files the
// guest left open.
type VFS struct {
	desc    Descriptor
	adapter *vfs.Adapter
	module  wazeroapi.Module
}

// Instantiate exports the VFS functions from a host module in the runtime,
// under the name in cfg. A nil cfg is the same as NewConfig.
//
// # Notes
//
//   - Instantiate before the guest, which imports the functions.
//   - Closing the wazero.Runtime closes the host module, but not the files
//     it opened. Call VFS.Close for that.
func Instantiate(ctx context.Context, r wazero.Runtime, cfg *Config) (*VFS, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.fs == nil {
		return nil, errors.New("hostvfs: nil filesystem")
	}

	adapter, err := vfs.New(vfs.Options{
		FS:           hostfs.New(cfg.fs),
		MaxPathname:  cfg.maxPathname,
		IOMethods:    cfg.ioMethods,
		WritableRoot: cfg.writableRoot,
		RandSource:   cfg.randSource,
		Walltime:     cfg.walltime,
		Nanosleep:    cfg.nanosleep,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, err
	}

	builder := r.NewHostModuleBuilder(cfg.moduleName)
	for _, f := range hostFunctions {
		exportFunction(builder, adapter, f)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("hostvfs: instantiate %q: %w", cfg.moduleName, err)
	}
	return &VFS{desc: newDescriptor(cfg), adapter: adapter, module: mod}, nil
}

// Descriptor returns the record to register the VFS with.
func (v *VFS) Descriptor() Descriptor {
	return v.desc
}

// OpenFiles returns the count of files the guest has open.
func (v *VFS) OpenFiles() int {
	return v.adapter.OpenFiles()
}

// Close closes the host module and every file still open, removing those
// opened with api.OpenDeleteOnClose.
func (v *VFS) Close(ctx context.Context) error {
	return errors.Join(v.module.Close(ctx), v.adapter.Close())
}

const (
	i32 = wazeroapi.ValueTypeI32
	i64 = wazeroapi.ValueTypeI64
)

// hostFunction is a VFS method exported to the guest.
type hostFunction struct {
	name       string
	paramNames []string
	paramTypes []wazeroapi.ValueType

	// call reads its parameters from stack and writes the single i32 result
	// to stack[0].
	call func(a *vfs.Adapter, mem vfs.Memory, stack []uint64)
}

func exportFunction(builder wazero.HostModuleBuilder, a *vfs.Adapter, f *hostFunction) {
	call := f.call
	builder.NewFunctionBuilder().
		WithGoModuleFunction(wazeroapi.GoModuleFunc(func(_ context.Context, mod wazeroapi.Module, stack []uint64) {
			call(a, guestMemory(mod), stack)
		}), f.paramTypes, []wazeroapi.ValueType{i32}).
		WithParameterNames(f.paramNames...).
		WithResultNames("rc").
		Export(f.name)
}

// guestMemory returns the memory of the calling module, or vfs.NoMemory if it
// has none. The result of Memory may be a nil pointer in a non-nil interface.
func guestMemory(mod wazeroapi.Module) vfs.Memory {
	m := mod.Memory()
	if m == nil {
		return vfs.NoMemory
	}
	if v := reflect.ValueOf(m); v.Kind() == reflect.Pointer && v.IsNil() {
		return vfs.NoMemory
	}
	return m
}

func u32(v uint64) uint32 { return wazeroapi.DecodeU32(v) }

func i32Param(v uint64) int32 { return wazeroapi.DecodeI32(v) }

func i64Param(v uint64) int64 { return int64(v) }

func result(stack []uint64, rc int32) { stack[0] = wazeroapi.EncodeI32(rc) }

// hostFunctions are every VFS method, in the order of the C structs.
var hostFunctions = []*hostFunction{
	// sqlite3_vfs
	xOpen, xDelete, xAccess, xFullPathname, xRandomness, xSleep,
	xCurrentTime, xGetLastError, xCurrentTimeInt64,
	// sqlite3_io_methods
	xClose, xRead, xWrite, xTruncate, xSync, xFileSize, xLock, xUnlock,
	xCheckReservedLock, xFileControl, xSectorSize, xDeviceCharacteristics,
}

var xOpen = &hostFunction{
	name:       "xOpen",
	paramNames: []string{"vfs", "zName", "file", "flags", "pOutFlags"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32, i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.Open(mem, u32(stack[1]), u32(stack[2]), api.OpenFlag(u32(stack[3])), u32(stack[4])))
	},
}

var xDelete = &hostFunction{
	name:       "xDelete",
	paramNames: []string{"vfs", "zName", "syncDir"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.Delete(mem, u32(stack[1]), i32Param(stack[2])))
	},
}

var xAccess = &hostFunction{
	name:       "xAccess",
	paramNames: []string{"vfs", "zName", "flags", "pResOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.Access(mem, u32(stack[1]), api.AccessFlag(i32Param(stack[2])), u32(stack[3])))
	},
}

var xFullPathname = &hostFunction{
	name:       "xFullPathname",
	paramNames: []string{"vfs", "zName", "nOut", "zOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.FullPathname(mem, u32(stack[1]), u32(stack[2]), u32(stack[3])))
	},
}

var xRandomness = &hostFunction{
	name:       "xRandomness",
	paramNames: []string{"vfs", "nByte", "zOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.Randomness(mem, u32(stack[1]), u32(stack[2])))
	},
}

var xSleep = &hostFunction{
	name:       "xSleep",
	paramNames: []string{"vfs", "microseconds"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.Sleep(i32Param(stack[1])))
	},
}

var xCurrentTime = &hostFunction{
	name:       "xCurrentTime",
	paramNames: []string{"vfs", "pOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.CurrentTime(mem, u32(stack[1])))
	},
}

var xGetLastError = &hostFunction{
	name:       "xGetLastError",
	paramNames: []string{"vfs", "nOut", "zOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.GetLastError(mem, u32(stack[1]), u32(stack[2])))
	},
}

var xCurrentTimeInt64 = &hostFunction{
	name:       "xCurrentTimeInt64",
	paramNames: []string{"vfs", "pOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.CurrentTimeInt64(mem, u32(stack[1])))
	},
}

var xClose = &hostFunction{
	name:       "xClose",
	paramNames: []string{"file"},
	paramTypes: []wazeroapi.ValueType{i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.CloseFile(u32(stack[0])))
	},
}

var xRead = &hostFunction{
	name:       "xRead",
	paramNames: []string{"file", "buf", "iAmt", "iOfst"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32, i64},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.Read(mem, u32(stack[0]), u32(stack[1]), u32(stack[2]), i64Param(stack[3])))
	},
}

var xWrite = &hostFunction{
	name:       "xWrite",
	paramNames: []string{"file", "buf", "iAmt", "iOfst"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32, i64},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.Write(mem, u32(stack[0]), u32(stack[1]), u32(stack[2]), i64Param(stack[3])))
	},
}

var xTruncate = &hostFunction{
	name:       "xTruncate",
	paramNames: []string{"file", "size"},
	paramTypes: []wazeroapi.ValueType{i32, i64},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.Truncate(u32(stack[0]), i64Param(stack[1])))
	},
}

var xSync = &hostFunction{
	name:       "xSync",
	paramNames: []string{"file", "flags"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.Sync(u32(stack[0]), i32Param(stack[1])))
	},
}

var xFileSize = &hostFunction{
	name:       "xFileSize",
	paramNames: []string{"file", "pSize"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.FileSize(mem, u32(stack[0]), u32(stack[1])))
	},
}

var xLock = &hostFunction{
	name:       "xLock",
	paramNames: []string{"file", "lock"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.Lock(u32(stack[0]), api.LockLevel(i32Param(stack[1]))))
	},
}

var xUnlock = &hostFunction{
	name:       "xUnlock",
	paramNames: []string{"file", "lock"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.Unlock(u32(stack[0]), api.LockLevel(i32Param(stack[1]))))
	},
}

var xCheckReservedLock = &hostFunction{
	name:       "xCheckReservedLock",
	paramNames: []string{"file", "pResOut"},
	paramTypes: []wazeroapi.ValueType{i32, i32},
	call: func(a *vfs.Adapter, mem vfs.Memory, stack []uint64) {
		result(stack, a.CheckReservedLock(mem, u32(stack[0]), u32(stack[1])))
	},
}

var xFileControl = &hostFunction{
	name:       "xFileControl",
	paramNames: []string{"file", "op", "pArg"},
	paramTypes: []wazeroapi.ValueType{i32, i32, i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.FileControl(u32(stack[0]), i32Param(stack[1]), u32(stack[2])))
	},
}

var xSectorSize = &hostFunction{
	name:       "xSectorSize",
	paramNames: []string{"file"},
	paramTypes: []wazeroapi.ValueType{i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, a.SectorSize(u32(stack[0])))
	},
}

var xDeviceCharacteristics = &hostFunction{
	name:       "xDeviceCharacteristics",
	paramNames: []string{"file"},
	paramTypes: []wazeroapi.ValueType{i32},
	call: func(a *vfs.Adapter, _ vfs.Memory, stack []uint64) {
		result(stack, int32(a.DeviceCharacteristics(u32(stack[0]))))
	},
}
