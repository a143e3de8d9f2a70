package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/weft/cache"
)

// Context holds the single WebGPU context for the application, plus the
// process-wide handle tables that map integer ids to native resources. It is
// created once by Init and torn down only at process exit.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	functions *cache.Table[*function]
	buffers   *cache.Table[*buffer]
}

var (
	ctx      Context
	initOnce sync.Once
	initErr  error
	ready    atomic.Bool
)

// Init performs the one-time setup of the native GPU context. It must complete
// successfully before any other operation in this package; every other entry
// point fails with ErrNotInitialized until it does. Repeated calls return the
// outcome of the first.
//
// A failed Init is unrecoverable for the process lifetime.
func Init() error {
	initOnce.Do(func() {
		initErr = initialize()
	})
	return initErr
}

func initialize() error {
	ctx.Instance = wgpu.CreateInstance(nil)
	if ctx.Instance == nil {
		return errors.New("gpu: failed to create WebGPU instance")
	}

	// 0. Scan for a discrete adapter explicitly via EnumerateAdapters
	for _, a := range ctx.Instance.EnumerateAdapters(nil) {
		info := a.GetInfo()
		Logger().Debug("enumerated adapter",
			zap.String("name", info.Name),
			zap.String("vendor", info.VendorName),
			zap.String("type", info.AdapterType.String()),
		)

		if info.AdapterType == wgpu.AdapterTypeDiscreteGPU {
			ctx.Adapter = a
			break
		}
	}

	// Helper to try init with an adapter option
	tryInit := func(opts *wgpu.RequestAdapterOptions) error {
		if ctx.Adapter != nil {
			return nil // Already found
		}
		var err error
		ctx.Adapter, err = ctx.Instance.RequestAdapter(opts)
		return err
	}

	// 1. Try High Performance (if not found above)
	err := tryInit(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})

	if err != nil && ctx.Adapter == nil {
		Logger().Debug("high performance adapter failed, falling back", zap.Error(err))
		// 2. Try Low Power
		err = tryInit(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreferenceLowPower,
		})
	}

	if err != nil && ctx.Adapter == nil {
		Logger().Debug("low power adapter failed, trying default", zap.Error(err))
		err = tryInit(nil)
	}

	if ctx.Adapter == nil {
		return fmt.Errorf("gpu: all adapter attempts failed: %v", err)
	}

	info := ctx.Adapter.GetInfo()
	Logger().Info("using GPU adapter",
		zap.String("name", info.Name),
		zap.String("vendor", info.VendorName),
	)

	ctx.Device, err = ctx.Adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("gpu: unable to request device: %w", err)
	}

	ctx.Queue = ctx.Device.GetQueue()
	if ctx.Queue == nil {
		return errors.New("gpu: device queue not available")
	}

	ctx.functions = cache.NewTable[*function]()
	ctx.buffers = cache.NewTable[*buffer]()

	ready.Store(true)

	return nil
}

// current returns the process context, or ErrNotInitialized if Init has not
// completed successfully.
func current() (*Context, error) {
	if !ready.Load() {
		return nil, ErrNotInitialized
	}
	return &ctx, nil
}
