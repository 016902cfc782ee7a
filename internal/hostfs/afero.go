package hostfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/tetratelabs/hostvfs/internal/descriptor"
)

// defaultPerm is the permission of files created by OpenSync.
const defaultPerm fs.FileMode = 0o644

type openFile struct {
	path string
	file afero.File
	modeFlags
}

type aferoFS struct {
	fs afero.Fs

	mu    sync.Mutex
	files descriptor.Table[FD, *openFile]
}

// New returns a FS backed by the given afero.Fs. Use afero.NewOsFs for the
// real filesystem, optionally wrapped in afero.NewBasePathFs to confine
// paths to a directory.
func New(fsys afero.Fs) FS {
	return &aferoFS{fs: fsys}
}

// AccessSync implements FS.AccessSync
func (a *aferoFS) AccessSync(path string) error {
	if _, err := a.fs.Stat(path); err != nil {
		return pathError("accessSync", path, err)
	}
	return nil
}

// OpenSync implements FS.OpenSync
func (a *aferoFS) OpenSync(path string, mode Mode) (FD, error) {
	mf, err := parseMode(mode)
	if err != nil {
		return 0, pathError("openSync", path, err)
	}

	f, err := a.fs.OpenFile(path, mf.flag, defaultPerm)
	if err != nil {
		return 0, pathError("openSync", path, err)
	}

	if st, err := f.Stat(); err != nil {
		_ = f.Close()
		return 0, pathError("openSync", path, err)
	} else if st.IsDir() {
		_ = f.Close()
		return 0, pathError("openSync", path, ErrIsDirectory)
	}

	a.mu.Lock()
	fd, ok := a.files.Insert(&openFile{path: path, file: f, modeFlags: mf})
	a.mu.Unlock()
	if !ok {
		_ = f.Close()
		return 0, pathError("openSync", path, errors.New("too many open files"))
	}
	return fd, nil
}

// CloseSync implements FS.CloseSync
func (a *aferoFS) CloseSync(fd FD) error {
	a.mu.Lock()
	of, ok := a.files.Lookup(fd)
	if ok {
		a.files.Delete(fd)
	}
	a.mu.Unlock()

	if !ok {
		return badDescriptor("closeSync", fd)
	}
	if err := of.file.Close(); err != nil {
		return pathError("closeSync", of.path, err)
	}
	return nil
}

// ReadSync implements FS.ReadSync
func (a *aferoFS) ReadSync(req ReadRequest) (int, error) {
	of, err := a.lookup("readSync", req.FD)
	if err != nil {
		return 0, err
	}
	if !of.readable {
		return 0, pathError("readSync", of.path, ErrBadDescriptor)
	}

	buf, err := window(req.ArrayBuffer, req.Offset, req.Length)
	if err != nil {
		return 0, pathError("readSync", of.path, err)
	}
	if req.Position < 0 {
		return 0, pathError("readSync", of.path, ErrInvalidArgument)
	}

	n, err := of.file.ReadAt(buf, req.Position)
	if err != nil && !isEOF(err) {
		return n, pathError("readSync", of.path, err)
	}
	return n, nil
}

// WriteSync implements FS.WriteSync
func (a *aferoFS) WriteSync(req WriteRequest) (int, error) {
	of, err := a.lookup("writeSync", req.FD)
	if err != nil {
		return 0, err
	}
	if !of.writable {
		return 0, pathError("writeSync", of.path, ErrBadDescriptor)
	}

	data, err := window(req.Data, req.Offset, req.Length)
	if err != nil {
		return 0, pathError("writeSync", of.path, err)
	}

	var n int
	if of.append {
		// an append stream positions every write at end-of-file.
		if _, err = of.file.Seek(0, io.SeekEnd); err == nil {
			n, err = of.file.Write(data)
		}
	} else if req.Position < 0 {
		err = ErrInvalidArgument
	} else {
		n, err = of.file.WriteAt(data, req.Position)
	}
	if err != nil {
		return n, pathError("writeSync", of.path, err)
	}
	return n, nil
}

// FstatSync implements FS.FstatSync
func (a *aferoFS) FstatSync(fd FD) (Stat, error) {
	of, err := a.lookup("fstatSync", fd)
	if err != nil {
		return Stat{}, err
	}
	st, err := of.file.Stat()
	if err != nil {
		return Stat{}, pathError("fstatSync", of.path, err)
	}
	return Stat{Size: st.Size(), Mode: st.Mode(), ModTime: st.ModTime()}, nil
}

// TruncateSync implements FS.TruncateSync
func (a *aferoFS) TruncateSync(path string, length int64) error {
	if length < 0 {
		return pathError("truncateSync", path, ErrInvalidArgument)
	}
	f, err := a.fs.OpenFile(path, os.O_WRONLY, defaultPerm)
	if err != nil {
		return pathError("truncateSync", path, err)
	}
	err = f.Truncate(length)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return pathError("truncateSync", path, err)
	}
	return nil
}

// UnlinkSync implements FS.UnlinkSync
func (a *aferoFS) UnlinkSync(path string) error {
	st, err := a.fs.Stat(path)
	if err != nil {
		return pathError("unlinkSync", path, err)
	} else if st.IsDir() {
		return pathError("unlinkSync", path, ErrIsDirectory)
	}
	if err = a.fs.Remove(path); err != nil {
		return pathError("unlinkSync", path, err)
	}
	return nil
}

func (a *aferoFS) lookup(op string, fd FD) (*openFile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if of, ok := a.files.Lookup(fd); ok {
		return of, nil
	}
	return nil, badDescriptor(op, fd)
}

// window returns buf[offset:offset+length], or ErrInvalidArgument if that
// range is not within buf.
func window(buf []byte, offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		return nil, ErrInvalidArgument
	}
	return buf[offset : offset+length], nil
}

// isEOF reports a read that reached end-of-file. afero.MemMapFs returns
// io.ErrUnexpectedEOF when the position is strictly past the end.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// pathError re-labels err with the host operation, so that messages name
// the host call regardless of which afero.Fs produced them.
func pathError(op, path string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}

func badDescriptor(op string, fd FD) error {
	return &fs.PathError{Op: op, Path: fmt.Sprintf("fd(%d)", fd), Err: ErrBadDescriptor}
}
