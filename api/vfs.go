// Package api includes constants shared by the guest-facing host functions and
// the internal adapter. Values match the sqlite3 C API, as the guest is SQLite
// compiled to WebAssembly.
//
// See https://www.sqlite.org/c3ref/vfs.html
package api

import "fmt"

// ResultCode is the integer status returned by every VFS and I/O method.
//
// See https://www.sqlite.org/rescode.html
type ResultCode = int32

const (
	ResultOK       ResultCode = 0
	ResultError    ResultCode = 1
	ResultNoMem    ResultCode = 7
	ResultIOErr    ResultCode = 10
	ResultNotFound ResultCode = 12
	ResultCantOpen ResultCode = 14

	// ResultIOErrShortRead is not a failure: bytes past end-of-file read as
	// zero and the caller continues.
	ResultIOErrShortRead ResultCode = ResultIOErr | (2 << 8)
	// ResultIOErrDelete is returned when xDelete could not unlink a path.
	ResultIOErrDelete    ResultCode = ResultIOErr | (10 << 8)
)

// ResultCodeName returns the sqlite3 constant name of the result code, or its
// numeric value when unknown.
func ResultCodeName(rc ResultCode) string {
	switch rc {
	case ResultOK:
		return "SQLITE_OK"
	case ResultError:
		return "SQLITE_ERROR"
	case ResultNoMem:
		return "SQLITE_NOMEM"
	case ResultIOErr:
		return "SQLITE_IOERR"
	case ResultNotFound:
		return "SQLITE_NOTFOUND"
	case ResultCantOpen:
		return "SQLITE_CANTOPEN"
	case ResultIOErrShortRead:
		return "SQLITE_IOERR_SHORT_READ"
	case ResultIOErrDelete:
		return "SQLITE_IOERR_DELETE"
	}
	return fmt.Sprintf("%d", rc)
}

// OpenFlag is the bitset passed to xOpen.
//
// See https://www.sqlite.org/c3ref/c_open_autoproxy.html
type OpenFlag = uint32

const (
	OpenReadOnly      OpenFlag = 0x00000001
	OpenReadWrite     OpenFlag = 0x00000002
	OpenCreate        OpenFlag = 0x00000004
	OpenDeleteOnClose OpenFlag = 0x00000008
	OpenExclusive     OpenFlag = 0x00000010

	// The below describe the type of file being opened. They are passed
	// through the adapter untouched.

	OpenMainDB       OpenFlag = 0x00000100
	OpenTempDB       OpenFlag = 0x00000200
	OpenTransientDB  OpenFlag = 0x00000400
	OpenMainJournal  OpenFlag = 0x00000800
	OpenTempJournal  OpenFlag = 0x00001000
	OpenSubJournal   OpenFlag = 0x00002000
	OpenSuperJournal OpenFlag = 0x00004000
	OpenWAL          OpenFlag = 0x00080000
)

// LockLevel is the advisory lock level tracked per open file.
//
// See https://www.sqlite.org/c3ref/c_lock_exclusive.html
type LockLevel = int32

const (
	LockNone LockLevel = iota
	LockShared
	LockReserved
	LockPending
	LockExclusive
)

// LockLevelName returns the sqlite3 constant name of the lock level.
func LockLevelName(l LockLevel) string {
	switch l {
	case LockNone:
		return "SQLITE_LOCK_NONE"
	case LockShared:
		return "SQLITE_LOCK_SHARED"
	case LockReserved:
		return "SQLITE_LOCK_RESERVED"
	case LockPending:
		return "SQLITE_LOCK_PENDING"
	case LockExclusive:
		return "SQLITE_LOCK_EXCLUSIVE"
	}
	return fmt.Sprintf("%d", l)
}

// AccessFlag is the question asked by xAccess.
//
// See https://www.sqlite.org/c3ref/c_access_exists.html
type AccessFlag = int32

const (
	AccessExists    AccessFlag = 0
	AccessReadWrite AccessFlag = 1
	AccessRead      AccessFlag = 2
)

// IOCapUndeletableWhenOpen is the xDeviceCharacteristics bit saying a file
// cannot be deleted while a handle to it remains open.
//
// See https://www.sqlite.org/c3ref/c_iocap_atomic.html
const IOCapUndeletableWhenOpen uint32 = 0x00000800
