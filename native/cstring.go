package native

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Ptr points to component memory owned by the core. It stays valid until the
// next structural change of the entity.
type Ptr = unsafe.Pointer

// CString is a NUL terminated byte buffer as passed across the boundary.
type CString []byte

// ToCString encodes value and appends the terminating NUL.
func ToCString(value string) CString {
	buf := make([]byte, len(value)+1)
	copy(buf, value)
	return buf
}

// String decodes the buffer up to the first NUL.
// A nil buffer decodes to the empty string.
func (c CString) String() string {
	if idx := bytes.IndexByte(c, 0); idx >= 0 {
		return string(c[:idx])
	}

	return string(c)
}

func (c CString) IsNil() bool {
	return c == nil
}

// Fault is raised with panic when the core detects misuse that it cannot
// recover from, such as unbalanced defer calls or a stale cursor.
type Fault struct {
	Op     string
	Detail string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("native fault in %s: %s", f.Op, f.Detail)
}

// Faultf panics with a new Fault.
func Faultf(op string, format string, args ...any) {
	panic(&Fault{Op: op, Detail: fmt.Sprintf(format, args...)})
}
