package vfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tetratelabs/hostvfs/api"
)

const (
	// julianDayUnixEpoch is the Julian Day Number of 1970-01-01T00:00:00Z.
	julianDayUnixEpoch = 2440587.5
	millisPerDay       = 86_400_000
	julianMillisEpoch  = int64(julianDayUnixEpoch * millisPerDay)
)

// The below implement sqlite3_vfs (version 2), except the dynamic library
// hooks which are left null.
//
// See https://www.sqlite.org/c3ref/vfs.html

// Open implements xOpen. When zName is zero, a random name is used. On
// success, the effective flags are written to pOutFlags when non-zero.
func (a *Adapter) Open(mem Memory, zName, identity uint32, flags api.OpenFlag, pOutFlags uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	var name string
	if zName == 0 {
		name = a.tempFilename()
	} else if n, ok := readCString(mem, zName, a.maxPathname); !ok {
		return a.fail(api.ResultCantOpen, "xOpen", fmt.Errorf("%w at %#x", errInvalidName, zName))
	} else {
		name = n
	}
	logger := a.log.WithFields(logrus.Fields{"path": name, "flags": fmt.Sprintf("%#x", flags)})

	if _, ok := a.handles.lookup(identity); ok {
		return a.fail(api.ResultCantOpen, "xOpen", fmt.Errorf("%w %#x", errHandleInUse, identity))
	}

	mode, err := toHostMode(flags)
	if err != nil {
		return a.fail(api.ResultCantOpen, "xOpen", err)
	}
	// created is true when this open makes the file, so a failure below
	// removes it again.
	created := flags&api.OpenExclusive != 0 ||
		(flags&api.OpenCreate != 0 && a.fs.AccessSync(name) != nil)
	fd, err := a.openNative(name, mode)
	if err != nil {
		return a.fail(api.ResultCantOpen, "xOpen", err)
	}

	if (a.ioMethods != 0 && !mem.WriteUint32Le(identity, a.ioMethods)) ||
		(pOutFlags != 0 && !mem.WriteUint32Le(pOutFlags, flags)) {
		_ = a.fs.CloseSync(fd)
		if created || flags&api.OpenDeleteOnClose != 0 {
			_ = a.fs.UnlinkSync(name)
		}
		return a.fail(api.ResultCantOpen, "xOpen", fmt.Errorf("%w: file=%#x outFlags=%#x", errOutOfRange, identity, pOutFlags))
	}

	a.handles.insert(&Handle{Identity: identity, FD: fd, Path: name, Flags: flags, Lock: api.LockNone})
	logger.WithField("mode", string(mode)).Debug("xOpen")
	return api.ResultOK
}

// Delete implements xDelete. There is no directory sync on the host, so
// syncDir is ignored.
func (a *Adapter) Delete(mem Memory, zName uint32, syncDir int32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	name, ok := readCString(mem, zName, a.maxPathname)
	if !ok {
		return a.fail(api.ResultIOErrDelete, "xDelete", fmt.Errorf("%w at %#x", errInvalidName, zName))
	}
	if err := a.fs.UnlinkSync(name); err != nil {
		return a.fail(api.ResultIOErrDelete, "xDelete", err)
	}
	a.log.WithField("path", name).Debug("xDelete")
	return api.ResultOK
}

// Access implements xAccess. The host can only tell whether a path exists,
// so apart from the create probe (api.OpenCreate), which only needs the path
// to exist, every request is also answered by whether the path is under the
// writable root. A failed probe answers 0 and records the reason, but the
// call itself succeeds.
func (a *Adapter) Access(mem Memory, zName uint32, flags api.AccessFlag, pResOut uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	name, ok := readCString(mem, zName, a.maxPathname)
	if !ok {
		return a.fail(api.ResultIOErr, "xAccess", fmt.Errorf("%w at %#x", errInvalidName, zName))
	}

	var res uint32
	if err := a.fs.AccessSync(name); err != nil {
		a.lastErr.Set(err)
	} else if flags == api.AccessFlag(api.OpenCreate) || a.writable(name) {
		res = 1
	}
	if !mem.WriteUint32Le(pResOut, res) {
		return a.fail(api.ResultIOErr, "xAccess", fmt.Errorf("%w: out=%#x", errOutOfRange, pResOut))
	}
	a.log.WithFields(logrus.Fields{"path": name, "flags": flags, "result": res}).Trace("xAccess")
	return api.ResultOK
}

// writable returns true if name is the writable root or under it.
func (a *Adapter) writable(name string) bool {
	root := a.writableRoot
	if root == "" || name == root {
		return true
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return strings.HasPrefix(name, root)
}

// FullPathname implements xFullPathname. Names are used as given, so this
// only copies zName to zOut, failing if it does not fit with its NUL.
func (a *Adapter) FullPathname(mem Memory, zName, nOut, zOut uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	limit := a.maxPathname
	if nOut > limit {
		limit = nOut
	}
	name, ok := readCString(mem, zName, limit)
	if !ok {
		return a.fail(api.ResultCantOpen, "xFullPathname", fmt.Errorf("%w at %#x", errInvalidName, zName))
	}
	if _, ok = writeCString(mem, zOut, name, nOut); !ok {
		return a.fail(api.ResultCantOpen, "xFullPathname", fmt.Errorf("%w: out=%#x len=%d", errOutOfRange, zOut, nOut))
	}
	if uint32(len(name)) >= nOut {
		return a.fail(api.ResultCantOpen, "xFullPathname", fmt.Errorf("%s: pathname longer than %d bytes", name, nOut))
	}
	return api.ResultOK
}

// GetLastError implements xGetLastError. A pending message is copied to
// zOut, truncated and NUL-terminated within nOut, and the slot is cleared.
// With nothing pending, zOut is left untouched.
//
// Unlike the other methods, this does not clear the slot on entry.
func (a *Adapter) GetLastError(mem Memory, nOut, zOut uint32) api.ResultCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	message, ok := a.lastErr.Drain()
	if !ok || nOut == 0 {
		return api.ResultOK
	}
	if _, ok = writeCString(mem, zOut, message, nOut); !ok {
		return api.ResultNoMem
	}
	if uint32(len(message)) >= nOut && !mem.WriteByte(zOut+nOut-1, 0) {
		return api.ResultNoMem
	}
	return api.ResultOK
}

// CurrentTime implements xCurrentTime, writing the Julian Day Number as a
// float64 to pOut.
func (a *Adapter) CurrentTime(mem Memory, pOut uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	days := julianDayUnixEpoch + float64(a.unixMillis())/millisPerDay
	if !mem.WriteFloat64Le(pOut, days) {
		return a.fail(api.ResultIOErr, "xCurrentTime", fmt.Errorf("%w: out=%#x", errOutOfRange, pOut))
	}
	return api.ResultOK
}

// CurrentTimeInt64 implements xCurrentTimeInt64, writing the Julian Day
// Number in milliseconds as an int64 to pOut.
func (a *Adapter) CurrentTimeInt64(mem Memory, pOut uint32) api.ResultCode {
	a.begin()
	defer a.mu.Unlock()

	millis := julianMillisEpoch + a.unixMillis()
	if !mem.WriteUint64Le(pOut, uint64(millis)) {
		return a.fail(api.ResultIOErr, "xCurrentTimeInt64", fmt.Errorf("%w: out=%#x", errOutOfRange, pOut))
	}
	return api.ResultOK
}

func (a *Adapter) unixMillis() int64 {
	sec, nsec := a.walltime()
	return sec*1000 + int64(nsec)/int64(time.Millisecond)
}

// Randomness implements xRandomness, returning the count of bytes filled.
func (a *Adapter) Randomness(mem Memory, n, zOut uint32) int32 {
	a.begin()
	defer a.mu.Unlock()

	buf, ok := mem.Read(zOut, n)
	if !ok {
		a.lastErr.Set(fmt.Errorf("%w: out=%#x len=%d", errOutOfRange, zOut, n))
		return 0
	}
	return int32(a.randomness(buf))
}

// Sleep implements xSleep. Without a reference sleep, this returns zero
// immediately: there is nothing to block on.
func (a *Adapter) Sleep(micros int32) int32 {
	a.begin()
	a.mu.Unlock()

	if a.nanosleep == nil || micros <= 0 {
		return 0
	}
	a.nanosleep(int64(micros) * int64(time.Microsecond))
	return micros
}
