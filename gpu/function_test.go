package gpu

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_NewFunction tests that NewFunction either compiles a kernel or reports
// a compile error with a diagnostic, depending on the scenario, and that a
// failed compile never registers a handle.
func Test_NewFunction(t *testing.T) {
	requireGPU(t)

	type scenario struct {
		name       string
		source     string
		entryPoint string
		wantErr    bool
	}

	scenarios := []scenario{
		{
			name:    "no source or entry point",
			wantErr: true,
		},
		{
			name:    "source without entry point",
			source:  sourceNoop,
			wantErr: true,
		},
		{
			name:       "entry point without source",
			entryPoint: "noop",
			wantErr:    true,
		},
		{
			name:       "malformed source",
			source:     "@compute fn noop( {",
			entryPoint: "noop",
			wantErr:    true,
		},
		{
			name:       "valid source, valid entry point",
			source:     sourceNoop,
			entryPoint: "noop",
		},
		{
			name:       "valid source, different kernel",
			source:     sourceTransfer,
			entryPoint: "transfer",
		},
	}

	for i, scenario := range scenarios {
		t.Run(fmt.Sprintf("Scenario%02d", i+1), func(t *testing.T) {
			before := ctx.functions.Len()

			id, err := NewFunction(scenario.source, scenario.entryPoint)
			if scenario.wantErr {
				var compileErr *CompileError
				require.ErrorAs(t, err, &compileErr)
				require.NotEmpty(t, compileErr.Diagnostic)
				require.False(t, id.Valid())
				require.Equal(t, before, ctx.functions.Len())
				return
			}

			require.Nil(t, err, "Unable to set up kernel function: %s", err)
			require.True(t, id.Valid())
			require.Equal(t, before+1, ctx.functions.Len())

			require.Nil(t, ReleaseFunction(id))
		})
	}
}

// Test_FunctionID_Name tests that Name returns the entry-point name for a live
// function and reports ErrNotFound for a dead one.
func Test_FunctionID_Name(t *testing.T) {
	requireGPU(t)

	// An id that was never issued.
	_, err := FunctionID(0).Name()
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "", FunctionID(0).String())

	id, err := NewFunction(sourceTransfer, "transfer")
	require.Nil(t, err)

	name, err := id.Name()
	require.Nil(t, err)
	require.Equal(t, "transfer", name)
	require.Equal(t, "transfer", id.String())

	// Name stops resolving once the function is released.
	require.Nil(t, ReleaseFunction(id))
	_, err = id.Name()
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "", id.String())
}

// Test_ReleaseFunction tests that releasing is exact-once.
func Test_ReleaseFunction(t *testing.T) {
	requireGPU(t)

	id, err := NewFunction(sourceNoop, "noop")
	require.Nil(t, err)

	require.Nil(t, ReleaseFunction(id))
	require.ErrorIs(t, ReleaseFunction(id), ErrNotFound)
}

// Test_NewFunction_threadSafe tests that parallel compiles yield distinct live
// ids that each resolve to their own entry-point name.
func Test_NewFunction_threadSafe(t *testing.T) {
	requireGPU(t)

	type data struct {
		id       FunctionID
		wantName string
	}

	numIter := 20

	// Block every goroutine until they are all ready to fire.
	var ready sync.WaitGroup
	ready.Add(numIter)

	dataCh := make(chan data)
	for i := 0; i < numIter; i++ {
		entryPoint := fmt.Sprintf("kernel_%d", i+1)
		source := fmt.Sprintf("@compute @workgroup_size(1) fn %s() {}", entryPoint)

		go func() {
			ready.Wait()

			id, err := NewFunction(source, entryPoint)
			require.Nil(t, err, "Unable to set up kernel function %s: %s", entryPoint, err)

			dataCh <- data{id: id, wantName: entryPoint}
		}()
		ready.Done()
	}

	seen := make(map[FunctionID]bool, numIter)
	for i := 0; i < numIter; i++ {
		d := <-dataCh

		require.True(t, d.id.Valid())
		require.False(t, seen[d.id], "id %d issued twice", d.id)
		seen[d.id] = true

		require.Equal(t, d.wantName, d.id.String())
	}

	for id := range seen {
		require.Nil(t, ReleaseFunction(id))
	}
}
