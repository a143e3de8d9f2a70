package gpu

import (
	"strings"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/weft/cache"
)

// A FunctionID references a compiled kernel function. It is the only
// externally valid reference to the underlying pipeline.
type FunctionID int32

// Valid checks whether or not the id could reference a live kernel function.
func (id FunctionID) Valid() bool {
	return id > 0
}

// function is the native state behind one FunctionID.
type function struct {
	name     string
	pipeline *wgpu.ComputePipeline
}

// NewFunction compiles the WGSL kernel in source, resolves entryPoint within
// it, and registers the resulting pipeline under a fresh id. This needs to be
// called only once for every kernel that will be run. Compiler diagnostics are
// passed through verbatim in the returned CompileError.
func NewFunction(source, entryPoint string) (FunctionID, error) {
	c, err := current()
	if err != nil {
		return 0, err
	}

	if strings.TrimSpace(source) == "" {
		return 0, &CompileError{Diagnostic: "missing kernel source"}
	}
	if entryPoint == "" {
		return 0, &CompileError{Diagnostic: "missing entry point name"}
	}

	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          entryPoint + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return 0, &CompileError{Diagnostic: err.Error()}
	}

	pipeline, err := c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   entryPoint + "_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: entryPoint},
	})
	if err != nil {
		return 0, &CompileError{Diagnostic: err.Error()}
	}

	id := FunctionID(c.functions.Insert(&function{
		name:     entryPoint,
		pipeline: pipeline,
	}))

	Logger().Debug("compiled kernel function",
		zap.String("entryPoint", entryPoint),
		zap.Int32("id", int32(id)),
	)

	return id, nil
}

// Name returns the entry-point name the function was compiled with. It reports
// ErrNotFound if the id does not reference a live function.
func (id FunctionID) Name() (string, error) {
	c, err := current()
	if err != nil {
		return "", err
	}

	fn, err := c.functions.Retrieve(cache.ID(id))
	if err != nil {
		return "", ErrNotFound
	}

	return fn.name, nil
}

// String returns the function's entry-point name, or an empty string if the id
// is not live.
func (id FunctionID) String() string {
	name, err := id.Name()
	if err != nil {
		return ""
	}
	return name
}

// ReleaseFunction releases the native pipeline behind id and retires the id.
// It reports ErrNotFound if the id is not live, including on a repeated
// release.
func ReleaseFunction(id FunctionID) error {
	c, err := current()
	if err != nil {
		return err
	}

	fn, err := c.functions.Take(cache.ID(id))
	if err != nil {
		return ErrNotFound
	}

	fn.pipeline.Release()

	return nil
}
