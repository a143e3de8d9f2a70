package gpu

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/openfluke/weft/cache"
)

// A BufferType is an element type that can back a typed buffer view. The
// kernel source's parameter declarations define how the bytes are actually
// interpreted on the device.
type BufferType interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// sizeof returns the size in bytes of the generic type T.
func sizeof[T any]() int {
	var t T
	return int(unsafe.Sizeof(t))
}

// Slice returns the buffer's backing memory as a slice of T. The element size
// must evenly divide the buffer's byte size. It reports ErrNotFound if the id
// is not a live buffer.
func Slice[T BufferType](id BufferID) ([]T, error) {
	c, err := current()
	if err != nil {
		return nil, err
	}

	b, err := c.buffers.Retrieve(cache.ID(id))
	if err != nil {
		return nil, ErrNotFound
	}

	elem := sizeof[T]()
	if b.size%elem != 0 {
		return nil, fmt.Errorf("gpu: buffer size %d is not a multiple of element size %d", b.size, elem)
	}

	return unsafe.Slice((*T)(b.host), b.size/elem), nil
}

// Alloc allocates a buffer of width elements of type T and returns its id
// along with a typed view over the new memory. The view has a length and
// capacity equal to width.
//
// Use Fold to portion the view into more dimensions.
func Alloc[T BufferType](width int) (BufferID, []T, error) {
	if _, err := current(); err != nil {
		return 0, nil, err
	}

	if width < 1 {
		return 0, nil, &AllocationError{Reason: fmt.Sprintf("invalid width %d", width)}
	}

	numBytes := width * sizeof[T]()
	if numBytes > math.MaxInt32 || numBytes < 0 {
		return 0, nil, &AllocationError{Reason: "exceeded maximum number of bytes"}
	}

	id, err := NewBuffer(numBytes)
	if err != nil {
		return 0, nil, err
	}

	view, err := Slice[T](id)
	if err != nil {
		return 0, nil, err
	}

	return id, view, nil
}

// AllocWith is the same as Alloc, but it also initializes the buffer with the
// provided data.
func AllocWith[T BufferType](data []T) (BufferID, []T, error) {
	id, view, err := Alloc[T](len(data))
	if err != nil {
		return 0, nil, err
	}

	copy(view, data)

	return id, view, nil
}

// Fold portions a flat slice of N items into width rows of N/width items.
// width must evenly divide N. Each row keeps a capacity equal to its length,
// so appends cannot bleed into a neighboring row.
func Fold[T any](items []T, width int) [][]T {
	if len(items) == 0 || width < 1 || len(items)%width != 0 {
		return nil
	}

	height := len(items) / width

	rows := make([][]T, 0, width)
	for start := 0; start < len(items); start += height {
		rows = append(rows, items[start:start+height:start+height])
	}

	return rows
}
