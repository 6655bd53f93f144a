package check

import (
	"context"
	"fmt"

	"codeberg.org/mutker/suspendctl/internal/gpu"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

const defaultGpuUtilizationThreshold = 10 // percent

// Gpu reports activity while an NVIDIA GPU is busy: utilization above the
// threshold or, optionally, any compute process running.
type Gpu struct {
	name      string
	device    *gpu.Device
	threshold int
	processes bool
}

func NewGpu(name string, opts Options) (Activity, error) {
	threshold, err := opts.Int("threshold", defaultGpuUtilizationThreshold)
	if err != nil {
		return nil, err
	}

	processes, err := opts.Bool("processes", true)
	if err != nil {
		return nil, err
	}

	index, err := opts.Int("device", 0)
	if err != nil {
		return nil, err
	}

	device, err := gpu.New(index)
	if err != nil {
		return nil, Severe("unable to initialize NVML", err)
	}

	return &Gpu{name: name, device: device, threshold: threshold, processes: processes}, nil
}

func (c *Gpu) Name() string { return c.name }

func (c *Gpu) Check(_ context.Context) (string, error) {
	utilization, err := c.device.Utilization()
	if err != nil {
		return "", Temporary("unable to read GPU utilization", err)
	}

	logger.Debug().
		Str("check", c.name).
		Int("gpu", utilization.GPU).
		Int("memory", utilization.Memory).
		Msg("GPU utilization")

	if utilization.GPU > c.threshold {
		return fmt.Sprintf("GPU utilization %d%% > threshold %d%%", utilization.GPU, c.threshold), nil
	}

	if c.processes {
		count, err := c.device.ProcessCount()
		if err != nil {
			return "", Temporary("unable to list GPU processes", err)
		}
		if count > 0 {
			return fmt.Sprintf("%d compute processes running on the GPU", count), nil
		}
	}

	return "", nil
}
