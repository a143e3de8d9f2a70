package gpu

import (
	"testing"
)

// Kernel sources shared across the tests. Every kernel declares
// @workgroup_size(1) so a Grid counts individual work-items.
const (
	// sourceNoop does nothing. It compiles with no bindings at all.
	sourceNoop = `
		@compute @workgroup_size(1)
		fn noop() {}
	`

	// sourceTransfer copies its input buffer into its output buffer.
	sourceTransfer = `
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read_write> output : array<f32>;

		@compute @workgroup_size(1)
		fn transfer(@builtin(global_invocation_id) gid: vec3<u32>) {
			output[gid.x] = input[gid.x];
		}
	`

	// sourceAdd sums two input buffers element-wise.
	sourceAdd = `
		@group(0) @binding(0) var<storage, read> a : array<f32>;
		@group(0) @binding(1) var<storage, read> b : array<f32>;
		@group(0) @binding(2) var<storage, read_write> out : array<f32>;

		@compute @workgroup_size(1)
		fn add(@builtin(global_invocation_id) gid: vec3<u32>) {
			out[gid.x] = a[gid.x] + b[gid.x];
		}
	`

	// sourceAffine applies y = y*s + t, with s and t arriving as scalar
	// inputs at binding 0.
	sourceAffine = `
		@group(0) @binding(0) var<storage, read> params : array<f32>;
		@group(0) @binding(1) var<storage, read_write> data : array<f32>;

		@compute @workgroup_size(1)
		fn affine(@builtin(global_invocation_id) gid: vec3<u32>) {
			data[gid.x] = data[gid.x] * params[0] + params[1];
		}
	`

	// sourceKeep binds its buffer without changing any element, so the bytes
	// that come back are exactly the bytes that were uploaded.
	sourceKeep = `
		@group(0) @binding(0) var<storage, read_write> data : array<u32>;

		@compute @workgroup_size(1)
		fn keep() {
			data[0] = data[0];
		}
	`

	// sourceMark writes a sentinel into the first element. Used to prove that
	// a clamped degenerate grid still runs one work-item.
	sourceMark = `
		@group(0) @binding(0) var<storage, read_write> out : array<f32>;

		@compute @workgroup_size(1)
		fn mark() {
			out[0] = 42.0;
		}
	`
)

// requireGPU initializes the process GPU context, skipping the test when no
// usable adapter is present (headless CI).
func requireGPU(t *testing.T) {
	t.Helper()

	if err := Init(); err != nil {
		t.Skipf("Skipping: no usable GPU adapter: %v", err)
	}
}
