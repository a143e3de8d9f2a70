package gpu

import (
	"errors"
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/weft/cache"
)

// Run executes the kernel function fn on the GPU and blocks until the native
// backend reports completion. It can be called multiple times for the same
// function and/or the same buffers and is safe for concurrent use, as long as
// no two in-flight dispatches share a buffer.
//
// scalars are constant inputs for every invocation. When any are supplied,
// they are packed into a single read-only storage array bound at @binding(0)
// of @group(0). The buffers referenced by bufferIDs occupy the following
// binding slots in the order given here (from @binding(0) when there are no
// scalars). Binding order is part of the contract: it must match the kernel
// source's declared bindings.
//
// Each bound buffer's host memory is uploaded to the device when the dispatch
// begins, and holds the kernel's results by the time Run returns.
func Run(fn FunctionID, grid Grid, scalars []float32, bufferIDs []BufferID) error {
	c, err := current()
	if err != nil {
		return err
	}

	f, err := c.functions.Retrieve(cache.ID(fn))
	if err != nil {
		return &DispatchError{Kind: ErrFunctionNotFound, Index: -1}
	}

	// Resolve every buffer id up front so nothing is submitted when one is
	// dead.
	bound := make([]*buffer, len(bufferIDs))
	for i, id := range bufferIDs {
		b, err := c.buffers.Retrieve(cache.ID(id))
		if err != nil {
			return &DispatchError{Kind: ErrBufferNotFound, Index: i}
		}
		bound[i] = b
	}

	// Writes made to the host mirrors before this call become visible to the
	// kernel here.
	for _, b := range bound {
		if err := b.upload(c); err != nil {
			return nativeErr(err)
		}
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(bound)+1)
	binding := uint32(0)

	if len(scalars) > 0 {
		scalarBuf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Contents: wgpu.ToBytes(scalars),
			Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nativeErr(err)
		}
		defer scalarBuf.Destroy()

		entries = append(entries, wgpu.BindGroupEntry{
			Binding: binding,
			Buffer:  scalarBuf,
			Size:    scalarBuf.GetSize(),
		})
		binding++
	}

	for _, b := range bound {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: binding,
			Buffer:  b.storage,
			Size:    b.storage.GetSize(),
		})
		binding++
	}

	bindGroup, err := c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   f.name + "_Bind",
		Layout:  f.pipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return nativeErr(err)
	}
	defer bindGroup.Release()

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nativeErr(err)
	}

	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(f.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	x, y, z := grid.norm()
	pass.DispatchWorkgroups(x, y, z)
	if err := pass.End(); err != nil {
		return nativeErr(err)
	}

	// Stage every bound buffer for readback so results land in the host
	// mirrors before Run returns.
	for _, b := range bound {
		if err := enc.CopyBufferToBuffer(b.storage, 0, b.staging, 0, b.storage.GetSize()); err != nil {
			return nativeErr(err)
		}
	}

	cmd, err := enc.Finish(nil)
	if err != nil {
		return nativeErr(err)
	}
	c.Queue.Submit(cmd)

	for _, b := range bound {
		if err := b.readback(c); err != nil {
			return nativeErr(err)
		}
	}

	Logger().Debug("dispatch complete",
		zap.String("function", f.name),
		zap.Uint32("x", x),
		zap.Uint32("y", y),
		zap.Uint32("z", z),
		zap.Int("numScalars", len(scalars)),
		zap.Int("numBuffers", len(bufferIDs)),
	)

	return nil
}

// readback blocks until the buffer's staged results are available, then copies
// them into the host mirror.
func (b *buffer) readback(c *Context) error {
	done := make(chan struct{})
	var mapErr error

	err := b.staging.MapAsync(wgpu.MapModeRead, 0, b.staging.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map status: %d", status)
		}
		close(done)
	})
	if err != nil {
		return err
	}

Loop:
	for {
		c.Device.Poll(true, nil)
		select {
		case <-done:
			break Loop
		default:
		}
	}

	if mapErr != nil {
		return mapErr
	}

	data := b.staging.GetMappedRange(0, uint(b.staging.GetSize()))
	if data == nil {
		b.staging.Unmap()
		return errors.New("mapped range nil")
	}

	copy(b.bytes(), data)
	b.staging.Unmap()

	return nil
}
