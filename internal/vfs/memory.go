package vfs

// Memory is the guest linear memory the engine's pointers refer to. It is
// the subset of api.Memory used by the adapter, so a wazero api.Memory can be
// passed directly.
//
// Read returns a write-through view: writes to the returned slice are
// visible to the guest.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	ReadByte(offset uint32) (byte, bool)
	Write(offset uint32, v []byte) bool
	WriteByte(offset uint32, v byte) bool
	WriteUint32Le(offset, v uint32) bool
	WriteUint64Le(offset uint32, v uint64) bool
	WriteFloat64Le(offset uint32, v float64) bool
}

// NoMemory is used when the calling module does not export a memory. Every
// access is out of range.
var NoMemory Memory = noMemory{}

type noMemory struct{}

func (noMemory) Size() uint32 { return 0 }
func (noMemory) Read(uint32, uint32) ([]byte, bool) { return nil, false }
func (noMemory) ReadByte(uint32) (byte, bool) { return 0, false }
func (noMemory) Write(uint32, []byte) bool { return false }
func (noMemory) WriteByte(uint32, byte) bool { return false }
func (noMemory) WriteUint32Le(uint32, uint32) bool { return false }
func (noMemory) WriteUint64Le(uint32, uint64) bool { return false }
func (noMemory) WriteFloat64Le(uint32, float64) bool { return false }

// readCString reads the NUL-terminated string at ptr. It fails if ptr is
// zero, out of range, or no NUL is found within limit bytes.
func readCString(mem Memory, ptr, limit uint32) (string, bool) {
	if ptr == 0 {
		return "", false
	}
	for n := uint32(0); n <= limit; n++ {
		if ptr+n < ptr {
			return "", false // overflow
		}
		b, ok := mem.ReadByte(ptr + n)
		if !ok {
			return "", false
		} else if b == 0 {
			buf, ok := mem.Read(ptr, n)
			return string(buf), ok
		}
	}
	return "", false
}

// writeCString copies s to dst, writing at most n bytes. The NUL terminator
// is only written when s is shorter than n. It returns the count of bytes
// written, including any NUL.
func writeCString(mem Memory, dst uint32, s string, n uint32) (uint32, bool) {
	if n == 0 {
		return 0, true
	}
	var b []byte
	if uint32(len(s)) < n {
		b = append([]byte(s), 0)
	} else {
		b = []byte(s[:n])
	}
	return uint32(len(b)), mem.Write(dst, b)
}
