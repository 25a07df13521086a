// Package demo loads and builds the jobctl sample workflows: ordered
// step lists, read from YAML the same way the rest of this codebase
// reads config, that get compiled into engine.Step values and handed to
// a Scheduler as a JobConfig.
package demo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riftlane/jobforge/internal/demo/steps"
	"github.com/riftlane/jobforge/internal/engine"
)

// WorkflowFile is the on-disk shape of a demo workflow definition.
//
//	name: bring-up
//	steps:
//	  - name: camera
//	    kind: devicesim
//	    device: camera-0
//	    delay: 50ms
//	    timeout: 2s
//	    max_retries: 2
//	  - name: publish
//	    kind: assetserver
//	    body: "ready"
type WorkflowFile struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Steps       []StepSpec `yaml:"steps"`
}

// StepSpec names one step in a workflow and the parameters its kind
// needs. Timeout and MaxRetries are per-step overrides; an unset
// Timeout means no timeout, an unset MaxRetries means 1 attempt.
type StepSpec struct {
	Name       string        `yaml:"name"`
	Kind       string        `yaml:"kind"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`

	Device string        `yaml:"device,omitempty"`
	Delay  time.Duration `yaml:"delay,omitempty"`
	Lock   string        `yaml:"lock,omitempty"`
	Body   string        `yaml:"body,omitempty"`
}

// LoadWorkflowFile reads and parses a WorkflowFile from path.
func LoadWorkflowFile(path string) (*WorkflowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demo: read workflow %s: %w", path, err)
	}

	var wf WorkflowFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("demo: parse workflow %s: %w", path, err)
	}
	return &wf, nil
}

// BuildSteps compiles a WorkflowFile's step specs into concrete
// engine.Step values, in order.
func (wf *WorkflowFile) BuildSteps() ([]engine.Step, error) {
	built := make([]engine.Step, 0, len(wf.Steps))
	for _, spec := range wf.Steps {
		step, err := buildStep(spec)
		if err != nil {
			return nil, fmt.Errorf("demo: step %q: %w", spec.Name, err)
		}
		built = append(built, step)
	}
	return built, nil
}

func buildStep(spec StepSpec) (engine.Step, error) {
	switch spec.Kind {
	case "devicesim":
		device := spec.Device
		if device == "" {
			device = spec.Name
		}
		return steps.NewDeviceSim(device, spec.Delay, spec.Timeout, spec.MaxRetries), nil
	case "lockscreen":
		lock := spec.Lock
		if lock == "" {
			lock = spec.Name
		}
		return steps.NewLockscreen(lock, spec.Timeout, spec.MaxRetries), nil
	case "assetserver":
		server := steps.NewAssetServer(spec.Body, spec.MaxRetries)
		server.StepTimeout = spec.Timeout
		return server, nil
	default:
		return nil, fmt.Errorf("unknown step kind %q", spec.Kind)
	}
}
