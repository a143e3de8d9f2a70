// Package main exposes the weft bridge as a C ABI. Every native resource is
// referenced by a small integer handle, and every fallible export reports
// failure through a diagnostic out-parameter: on error the export writes a
// C string (free it with weft_free_string) and returns its failure sentinel
// (0 for handle-returning exports, false otherwise).
//
// Build with: go build -buildmode=c-shared -o libweft.so ./cabi
package main

/*
#include <stdlib.h>
#include <stdbool.h>
*/
import "C"

import (
	"unsafe"

	"github.com/openfluke/weft/cache"
	"github.com/openfluke/weft/gpu"
)

// setErr reports err to the foreign caller through the diagnostic
// out-parameter, when both are present.
func setErr(errOut **C.char, err error) {
	if errOut != nil && err != nil {
		*errOut = C.CString(err.Error())
	}
}

//export weft_init
func weft_init(errOut **C.char) C.bool {
	if err := gpu.Init(); err != nil {
		setErr(errOut, err)
		return false
	}
	return true
}

//export weft_function_new
func weft_function_new(source *C.char, name *C.char, errOut **C.char) C.int {
	id, err := gpu.NewFunction(C.GoString(source), C.GoString(name))
	if err != nil {
		setErr(errOut, err)
		return 0
	}
	return C.int(id)
}

//export weft_function_name
func weft_function_name(id C.int) *C.char {
	// Empty for an unknown id. The caller frees the result either way.
	return C.CString(gpu.FunctionID(id).String())
}

//export weft_function_close
func weft_function_close(id C.int, errOut **C.char) C.bool {
	if err := gpu.ReleaseFunction(gpu.FunctionID(id)); err != nil {
		setErr(errOut, err)
		return false
	}
	return true
}

//export weft_buffer_new
func weft_buffer_new(size C.int, errOut **C.char) C.int {
	id, err := gpu.NewBuffer(int(size))
	if err != nil {
		setErr(errOut, err)
		return 0
	}
	return C.int(id)
}

//export weft_buffer_retrieve
func weft_buffer_retrieve(id C.int, errOut **C.char) unsafe.Pointer {
	data, err := gpu.Bytes(gpu.BufferID(id))
	if err != nil {
		setErr(errOut, err)
		return nil
	}

	// The backing memory lives on the C heap, so its address may cross the
	// boundary.
	return unsafe.Pointer(unsafe.SliceData(data))
}

//export weft_buffer_close
func weft_buffer_close(id C.int, errOut **C.char) C.bool {
	if err := gpu.ReleaseBuffer(gpu.BufferID(id)); err != nil {
		setErr(errOut, err)
		return false
	}
	return true
}

//export weft_run
func weft_run(fn C.int, width, height, depth C.int, args *C.float, numArgs C.int, bufferIds *C.int, numBufferIds C.int, errOut **C.char) C.bool {
	var scalars []float32
	if args != nil && numArgs > 0 {
		scalars = make([]float32, int(numArgs))
		copy(scalars, unsafe.Slice((*float32)(unsafe.Pointer(args)), int(numArgs)))
	}

	var ids []gpu.BufferID
	if bufferIds != nil && numBufferIds > 0 {
		ids = make([]gpu.BufferID, int(numBufferIds))
		for i, raw := range unsafe.Slice((*int32)(unsafe.Pointer(bufferIds)), int(numBufferIds)) {
			ids[i] = gpu.BufferID(raw)
		}
	}

	grid := gpu.Grid{X: int(width), Y: int(height), Z: int(depth)}
	if err := gpu.Run(gpu.FunctionID(fn), grid, scalars, ids); err != nil {
		setErr(errOut, err)
		return false
	}
	return true
}

// pointers caches opaque items on behalf of the foreign caller. It carries no
// GPU knowledge; it exists so the caller can park any native pointer here and
// pass the integer around instead.
var pointers = cache.NewTable[unsafe.Pointer]()

//export weft_cache_cache
func weft_cache_cache(item unsafe.Pointer, errOut **C.char) C.int {
	return C.int(pointers.Insert(item))
}

//export weft_cache_retrieve
func weft_cache_retrieve(id C.int, errOut **C.char) unsafe.Pointer {
	item, err := pointers.Retrieve(cache.ID(id))
	if err != nil {
		setErr(errOut, err)
		return nil
	}
	return item
}

//export weft_cache_remove
func weft_cache_remove(id C.int, errOut **C.char) C.bool {
	if err := pointers.Remove(cache.ID(id)); err != nil {
		setErr(errOut, err)
		return false
	}
	return true
}

//export weft_free_string
func weft_free_string(str *C.char) {
	C.free(unsafe.Pointer(str))
}

func main() {}
