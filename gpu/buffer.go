package gpu

/*
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/weft/cache"
)

// A BufferID references a buffer created with NewBuffer or Alloc. It is the
// only externally valid reference to the underlying memory.
type BufferID int32

// Valid checks whether or not the id could reference a live buffer.
func (id BufferID) Valid() bool {
	return id > 0
}

// buffer is the native state behind one BufferID: a device-local storage
// buffer the kernels read and write, a staging buffer for blocking readback,
// and a host mirror on the C heap whose address may legally cross the foreign
// boundary. The mirror is uploaded when a dispatch binds the buffer and
// refreshed before the dispatch returns.
type buffer struct {
	size    int
	host    unsafe.Pointer
	storage *wgpu.Buffer
	staging *wgpu.Buffer
}

// bytes returns the host mirror as a byte slice.
func (b *buffer) bytes() []byte {
	return unsafe.Slice((*byte)(b.host), b.size)
}

// upload copies the host mirror into the device storage buffer. Device writes
// must be 4-byte aligned, so a mirror of unaligned size is padded up to the
// storage buffer's rounded size first.
func (b *buffer) upload(c *Context) error {
	data := b.bytes()
	if devSize := int(b.storage.GetSize()); devSize != b.size {
		padded := make([]byte, devSize)
		copy(padded, data)
		data = padded
	}
	return c.Queue.WriteBuffer(b.storage, 0, data)
}

// NewBuffer allocates a block of sizeBytes bytes that is accessible to both
// the CPU and GPU, registers it under a fresh id, and returns the id. The size
// is fixed at creation; the contents are mutable through Bytes or Slice until
// ReleaseBuffer retires the id.
func NewBuffer(sizeBytes int) (BufferID, error) {
	c, err := current()
	if err != nil {
		return 0, err
	}

	if sizeBytes < 1 {
		return 0, &AllocationError{Reason: fmt.Sprintf("invalid size %d", sizeBytes)}
	}
	if sizeBytes > math.MaxInt32 {
		return 0, &AllocationError{Reason: "exceeded maximum number of bytes"}
	}

	// Device copies must be 4-byte aligned, so the device-side buffers round
	// up. The host mirror keeps the requested size.
	devSize := uint64((sizeBytes + 3) &^ 3)

	storage, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "weft_Storage",
		Size:  devSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return 0, &AllocationError{Reason: err.Error()}
	}

	staging, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "weft_Staging",
		Size:  devSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		storage.Destroy()
		return 0, &AllocationError{Reason: err.Error()}
	}

	host := C.calloc(C.size_t(sizeBytes), 1)
	if host == nil {
		storage.Destroy()
		staging.Destroy()
		return 0, &AllocationError{Reason: "host mirror allocation failed"}
	}

	id := BufferID(c.buffers.Insert(&buffer{
		size:    sizeBytes,
		host:    host,
		storage: storage,
		staging: staging,
	}))

	Logger().Debug("allocated buffer",
		zap.Int("sizeBytes", sizeBytes),
		zap.Int32("id", int32(id)),
	)

	return id, nil
}

// Bytes returns the buffer's backing memory as a byte slice for direct reads
// and writes. Writes made before a dispatch that binds the buffer are visible
// to that dispatch; kernel results are visible here once the dispatch returns.
// It reports ErrNotFound if the id is not a live buffer.
//
// Only the contents of the slice should be modified. Its length and the
// pointer to its underlying array should not be altered.
func Bytes(id BufferID) ([]byte, error) {
	c, err := current()
	if err != nil {
		return nil, err
	}

	b, err := c.buffers.Retrieve(cache.ID(id))
	if err != nil {
		return nil, ErrNotFound
	}

	return b.bytes(), nil
}

// ReleaseBuffer frees the buffer's native memory and retires the id. It is
// safe to call exactly once per successful allocation; a second release
// reports ErrNotFound instead of double-freeing.
func ReleaseBuffer(id BufferID) error {
	c, err := current()
	if err != nil {
		return err
	}

	b, err := c.buffers.Take(cache.ID(id))
	if err != nil {
		return ErrNotFound
	}

	C.free(b.host)
	b.storage.Destroy()
	b.staging.Destroy()

	return nil
}
