package wasmcore

import (
	"bytes"

	"github.com/oliverbestmann/flecs-go/native"
)

// writeCString copies value into freshly allocated guest memory.
// A nil value is passed as a NULL pointer.
func (c *Core) writeCString(value native.CString) uint64 {
	if value.IsNil() {
		return 0
	}

	// ensure the copy is terminated
	if len(value) == 0 || value[len(value)-1] != 0 {
		value = append(bytes.Clone(value), 0)
	}

	ptr := c.call("fb_malloc", uint64(len(value)))
	if ptr == 0 {
		native.Faultf("malloc", "out of guest memory allocating %d bytes", len(value))
	}

	if !c.mem.Write(uint32(ptr), value) {
		native.Faultf("malloc", "pointer %#x out of bounds", ptr)
	}

	return ptr
}

func (c *Core) free(ptr uint64) {
	if ptr != 0 {
		c.call("fb_free", ptr)
	}
}

// withString passes value to fn as a guest pointer that is valid for the
// duration of the call.
func (c *Core) withString(value native.CString, fn func(ptr uint64) uint64) uint64 {
	ptr := c.writeCString(value)
	defer c.free(ptr)

	return fn(ptr)
}

// readCString copies a NUL terminated string out of guest memory.
// A NULL pointer reads as nil.
func (c *Core) readCString(ptr uint64) native.CString {
	if ptr == 0 {
		return nil
	}

	size := c.mem.Size()

	var buf []byte
	for offset := uint32(ptr); offset < size; {
		chunk, ok := c.mem.Read(offset, min(256, size-offset))
		if !ok {
			break
		}

		if idx := bytes.IndexByte(chunk, 0); idx >= 0 {
			buf = append(buf, chunk[:idx+1]...)
			return buf
		}

		buf = append(buf, chunk...)
		offset += uint32(len(chunk))
	}

	native.Faultf("read_string", "string at %#x is not terminated", ptr)
	return nil
}

func (c *Core) readString(ptr uint64) string {
	return c.readCString(ptr).String()
}

// readOwnedString reads a string allocated by the core and releases it.
func (c *Core) readOwnedString(ptr uint64) string {
	defer c.free(ptr)
	return c.readString(ptr)
}
