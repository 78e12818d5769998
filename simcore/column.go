package simcore

import (
	"fmt"
	"math"
	"unsafe"
)

// column stores the values of a single component type as raw memory.
// Memory is backed by a uint64 slice so that every value is 8 byte aligned.
type column struct {
	info *typeInfo

	itemSize uintptr

	backing []uint64
	len     int
}

func makeColumn(info *typeInfo) *column {
	return &column{
		info:     info,
		itemSize: info.size,
	}
}

type buf *[math.MaxInt32]byte

func (c *column) ptrTo(row int) unsafe.Pointer {
	if row >= c.len {
		panic(fmt.Sprintf("row %d out of bounds, len is %d", row, c.len))
	}

	memory := unsafe.Pointer(unsafe.SliceData(c.backing))
	return unsafe.Add(memory, uintptr(row)*c.itemSize)
}

func (c *column) ensureSpace() {
	required := (uintptr(c.len+1)*c.itemSize + 7) / 8
	if uintptr(len(c.backing)) >= required {
		return
	}

	capacity := max(2*len(c.backing), int(required), 8)
	backing := make([]uint64, capacity)
	copy(backing, c.backing)
	c.backing = backing
}

// AppendZero appends a zero initialized value and returns its row.
func (c *column) AppendZero() int {
	c.ensureSpace()

	row := c.len
	c.len += 1

	clear((*buf(c.ptrTo(row)))[:c.itemSize])

	return row
}

// Import appends a copy of the value at row in source.
func (c *column) Import(source *column, row int) {
	target := c.AppendZero()
	c.copyFrom(target, source.ptrTo(row))
}

func (c *column) Copy(from, to int) {
	c.copyFrom(to, c.ptrTo(from))
}

func (c *column) copyFrom(row int, source unsafe.Pointer) {
	copy((*buf(c.ptrTo(row)))[:c.itemSize], (*buf(source))[:c.itemSize])
}

func (c *column) Truncate(n int) {
	c.len = n
}

func (c *column) Len() int {
	return c.len
}
