package vfs

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tetratelabs/hostvfs/api"
	"github.com/tetratelabs/hostvfs/internal/hostfs"
)

// The below implement sqlite3_io_methods (version 1). Each takes the
// identity of the sqlite3_file passed to Open.
//
// See https://www.sqlite.org/c3ref/io_methods.html

// CloseFile implements xClose. The handle is removed from the table even when
// the host close fails, so a failed close never leaks an entry.
func (a *Adapter) CloseFile(identity uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, ok := a.handles.lookup(identity)
	if !ok {
		return api.ResultOK
	}
	a.handles.delete(identity)

	if err := a.closeNative(h); err != nil {
		a.log.WithField("path", h.Path).WithError(err).Warn("xClose")
		return a.fail(api.ResultIOErr, "xClose", err)
	}
	a.log.WithField("path", h.Path).Debug("xClose")
	return api.ResultOK
}

// Read implements xRead. A read that extends past end-of-file zero-fills the
// rest of the destination and returns api.ResultIOErrShortRead.
func (a *Adapter) Read(mem Memory, identity, pDest, n uint32, offset int64) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, err := a.lookup(identity)
	if err != nil {
		return a.fail(api.ResultIOErr, "xRead", err)
	}
	dst, ok := mem.Read(pDest, n)
	if !ok {
		return a.fail(api.ResultIOErr, "xRead", fmt.Errorf("%w: dest=%#x len=%d", errOutOfRange, pDest, n))
	}

	read, err := a.fs.ReadSync(hostfs.ReadRequest{FD: h.FD, ArrayBuffer: dst, Length: len(dst), Position: offset})
	if err != nil {
		return a.fail(api.ResultIOErr, "xRead", err)
	}
	if read < len(dst) {
		clear(dst[read:])
		return api.ResultIOErrShortRead
	}
	return api.ResultOK
}

// Write implements xWrite. Success requires all n bytes to be written.
func (a *Adapter) Write(mem Memory, identity, pSrc, n uint32, offset int64) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, err := a.lookup(identity)
	if err != nil {
		return a.fail(api.ResultIOErr, "xWrite", err)
	}
	data, dataOffset, ok := writeSource(mem, pSrc, n)
	if !ok {
		return a.fail(api.ResultIOErr, "xWrite", fmt.Errorf("%w: src=%#x len=%d", errOutOfRange, pSrc, n))
	}

	written, err := a.fs.WriteSync(hostfs.WriteRequest{
		FD:       h.FD,
		Data:     data,
		Offset:   dataOffset,
		Length:   int(n),
		Position: offset,
	})
	if err != nil {
		return a.fail(api.ResultIOErr, "xWrite", err)
	} else if written != int(n) {
		return a.fail(api.ResultIOErr, "xWrite", fmt.Errorf("writeSync %s: wrote %d of %d bytes", h.Path, written, n))
	}
	return api.ResultOK
}

// writeSource returns the buffer and offset to hand the host for a write of
// n bytes at pSrc. Small memories are passed whole, but from
// sharedBufferLimit on only a copy of the range is exposed.
func writeSource(mem Memory, pSrc, n uint32) ([]byte, int, bool) {
	size := mem.Size()
	if uint64(pSrc)+uint64(n) > uint64(size) {
		return nil, 0, false
	}
	if size >= sharedBufferLimit {
		src, ok := mem.Read(pSrc, n)
		if !ok {
			return nil, 0, false
		}
		return append(make([]byte, 0, n), src...), 0, true
	}
	whole, ok := mem.Read(0, size)
	return whole, int(pSrc), ok
}

// Truncate implements xTruncate. The host only truncates by path.
func (a *Adapter) Truncate(identity uint32, size int64) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, err := a.lookup(identity)
	if err != nil {
		return a.fail(api.ResultIOErr, "xTruncate", err)
	}
	if err = a.fs.TruncateSync(h.Path, size); err != nil {
		return a.fail(api.ResultIOErr, "xTruncate", err)
	}
	return api.ResultOK
}

// Sync implements xSync. The host has no flush, so this always succeeds.
func (a *Adapter) Sync(identity uint32, flags int32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()
	return api.ResultOK
}

// FileSize implements xFileSize, writing the size as a little-endian 64-bit
// value whose high word is always zero. Files of 4GiB or more are reported
// as an error instead of a truncated size.
func (a *Adapter) FileSize(mem Memory, identity, pSize uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, err := a.lookup(identity)
	if err != nil {
		return a.fail(api.ResultIOErr, "xFileSize", err)
	}
	st, err := a.fs.FstatSync(h.FD)
	if err != nil {
		return a.fail(api.ResultIOErr, "xFileSize", err)
	}
	if st.Size > math.MaxUint32 {
		return a.fail(api.ResultIOErr, "xFileSize", fmt.Errorf("fstatSync %s: size %d exceeds 32 bits", h.Path, st.Size))
	}
	if !mem.WriteUint32Le(pSize, uint32(st.Size)) || !mem.WriteUint32Le(pSize+4, 0) {
		return a.fail(api.ResultIOErr, "xFileSize", fmt.Errorf("%w: size=%#x", errOutOfRange, pSize))
	}
	return api.ResultOK
}

// Lock implements xLock.
func (a *Adapter) Lock(identity uint32, level api.LockLevel) api.ResultCode {
	return a.setLock("xLock", identity, level)
}

// Unlock implements xUnlock.
func (a *Adapter) Unlock(identity uint32, level api.LockLevel) api.ResultCode {
	return a.setLock("xUnlock", identity, level)
}

// setLock overwrites the lock level. Levels are advisory and single-process.
func (a *Adapter) setLock(method string, identity uint32, level api.LockLevel) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, err := a.lookup(identity)
	if err != nil {
		return a.fail(api.ResultIOErr, method, err)
	}
	a.log.WithFields(logrus.Fields{"path": h.Path, "from": api.LockLevelName(h.Lock), "to": api.LockLevelName(level)}).Trace(method)
	h.Lock = level
	return api.ResultOK
}

// CheckReservedLock implements xCheckReservedLock, writing 1 to pOut when
// this handle holds any lock.
func (a *Adapter) CheckReservedLock(mem Memory, identity, pOut uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	h, err := a.lookup(identity)
	if err != nil {
		return a.fail(api.ResultIOErr, "xCheckReservedLock", err)
	}
	var reserved uint32
	if h.Lock != api.LockNone {
		reserved = 1
	}
	if !mem.WriteUint32Le(pOut, reserved) {
		return a.fail(api.ResultIOErr, "xCheckReservedLock", fmt.Errorf("%w: out=%#x", errOutOfRange, pOut))
	}
	return api.ResultOK
}

// FileControl implements xFileControl. No opcode is supported.
func (a *Adapter) FileControl(identity uint32, op int32, pArg uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()
	return api.ResultNotFound
}

// SectorSize implements xSectorSize.
func (a *Adapter) SectorSize(identity uint32) int32 {
	a.begin()
	defer a.mu.Unlock()
	return SectorSize
}

// DeviceCharacteristics implements xDeviceCharacteristics.
func (a *Adapter) DeviceCharacteristics(identity uint32) uint32 {
	a.begin()
	defer a.mu.Unlock()
	return DeviceCharacteristics
}
