// Package gpu reads utilization from NVIDIA GPUs via NVML. It feeds the
// GPU activity probe; a busy device keeps the host awake.
package gpu

import (
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"codeberg.org/mutker/suspendctl/internal/errors"
)

const (
	ErrInitFailed     = errors.ErrorCode("gpu_init_failed")
	ErrNotInitialized = errors.ErrorCode("gpu_not_initialized")
	ErrQueryFailed    = errors.ErrorCode("gpu_query_failed")
)

var errFactory = errors.New()

// Utilization is a snapshot of how busy a device currently is.
type Utilization struct {
	GPU    int // percent of time the device was executing
	Memory int // percent of time memory was being read or written
}

// Device wraps an NVML device handle.
type Device struct {
	mu          sync.Mutex
	device      nvml.Device
	initialized bool
}

// New initializes NVML and binds the device at the given index. Failures
// here mean NVML is unusable on this host.
func New(index int) (*Device, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrInitFailed, nvmlError(ret))
	}

	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		nvml.Shutdown()
		return nil, errFactory.Wrap(ErrInitFailed, nvmlError(ret)).WithData(index)
	}

	return &Device{device: device, initialized: true}, nil
}

// Shutdown releases the NVML library.
func (d *Device) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		nvml.Shutdown()
		d.initialized = false
	}
}

// Utilization returns current device and memory utilization rates.
func (d *Device) Utilization() (Utilization, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return Utilization{}, errFactory.New(ErrNotInitialized)
	}

	rates, ret := d.device.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		return Utilization{}, errFactory.Wrap(ErrQueryFailed, nvmlError(ret))
	}

	return Utilization{GPU: int(rates.Gpu), Memory: int(rates.Memory)}, nil
}

// ProcessCount returns the number of compute processes currently running
// on the device.
func (d *Device) ProcessCount() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return 0, errFactory.New(ErrNotInitialized)
	}

	procs, ret := d.device.GetComputeRunningProcesses()
	if ret != nvml.SUCCESS {
		return 0, errFactory.Wrap(ErrQueryFailed, nvmlError(ret))
	}

	return len(procs), nil
}

func nvmlError(ret nvml.Return) error {
	return fmt.Errorf("nvml: %s", nvml.ErrorString(ret))
}
