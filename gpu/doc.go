// Package gpu runs computational kernels on the GPU through WebGPU and
// references every native resource by a small integer id, so the package can
// sit behind a foreign-call boundary that has no pointer semantics.
//
// The lifecycle is: call Init once per process, compile each kernel once with
// NewFunction, allocate buffers with NewBuffer or Alloc, then call Run any
// number of times with a function id, a launch Grid, optional scalar inputs,
// and the buffer ids to bind. Run blocks until the backend reports completion,
// at which point the bound buffers' memory holds the kernel's results.
// ReleaseBuffer and ReleaseFunction retire ids; a retired id can never resolve
// to freed native memory.
//
// Kernels are written in WGSL. Scalar inputs arrive as a read-only storage
// array at @binding(0) when present; data buffers occupy the following binding
// slots in the order they were passed to Run. This is the mapping of Go
// element types to WGSL types for buffer contents:
//
//	| Go      | WGSL |
//	| ------- | ---- |
//	| float32 | f32  |
//	| int32   | i32  |
//	| uint32  | u32  |
//
// Narrower and 64-bit element types are permitted on the Go side for buffers
// the kernel treats as raw bytes.
package gpu
