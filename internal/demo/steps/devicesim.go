// Package steps provides small illustrative Step implementations used by
// the jobctl demo workflows. None of them touch real hardware or
// external services beyond a loopback HTTP listener; they exist to
// exercise the engine's RUN/CANCEL/CLEANUP contract end to end.
package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/riftlane/jobforge/internal/engine"
)

// DeviceSim simulates bringing up a piece of hardware: handle_run "arms"
// the device after a short simulated delay, handle_cancel disarms it if
// the RUN phase is aborted mid-flight, and handle_cleanup powers it back
// down once the Job is done with it.
type DeviceSim struct {
	engine.BaseStep

	Device string
	Delay  time.Duration

	armed bool
}

// NewDeviceSim builds a DeviceSim step named after device, armed after
// delay, with the given timeout and retry budget.
func NewDeviceSim(device string, delay, timeout time.Duration, maxRetries int) *DeviceSim {
	return &DeviceSim{
		BaseStep: engine.BaseStep{
			StepName:       fmt.Sprintf("devicesim:%s", device),
			StepTimeout:    timeout,
			StepMaxRetries: maxRetries,
		},
		Device: device,
		Delay:  delay,
	}
}

func (d *DeviceSim) HandleRun(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	timer := time.NewTimer(d.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		d.armed = true
		shared.Set(d.Device+".armed", true)
		done.Resolve()
	case <-ctx.Done():
	}
	return nil
}

func (d *DeviceSim) HandleCancel(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	d.armed = false
	shared.Set(d.Device+".armed", false)
	done.Resolve()
	return nil
}

func (d *DeviceSim) HandleCleanup(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	if d.armed {
		d.armed = false
		shared.Set(d.Device+".armed", false)
	}
	done.Resolve()
	return nil
}
