package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/riftlane/jobforge/internal/demo"
	"github.com/riftlane/jobforge/internal/engine"
	engineerrors "github.com/riftlane/jobforge/pkg/errors"
)

func newRunCmd() *cobra.Command {
	var timeout time.Duration
	var maxRetries int

	cmd := &cobra.Command{
		Use:   "run <workflow.yaml>",
		Short: "Run a workflow file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd.Context(), args[0], timeout, maxRetries)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"Timeout applied to the composite job as a whole (default: config default_timeout)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0,
		"Retry budget applied to the composite job as a whole (default: config default_max_retries)")

	return cmd
}

func runWorkflow(ctx context.Context, path string, timeout time.Duration, maxRetries int) error {
	wf, err := demo.LoadWorkflowFile(path)
	if err != nil {
		return err
	}

	built, err := wf.BuildSteps()
	if err != nil {
		return err
	}

	if timeout == 0 {
		timeout = engineDefaults.DefaultTimeout
	}
	if maxRetries == 0 {
		maxRetries = engineDefaults.DefaultMaxRetries
	}

	sched := engine.NewScheduler(nil, engine.WithLogger(log))
	sched.OnPushed(func(e engine.PushedEvent) { emitEvent("pushed", e.Job.ID(), nil) })
	sched.OnProgress(func(job engine.Runnable, p engine.Progress) {
		emitEvent("progress", job.ID(), fmt.Sprintf("step %d/%d success=%v", p.Index+1, p.Total, p.Success))
	})
	sched.OnCompleted(func(e engine.CompletedEvent) { emitEvent("completed", e.Job.ID(), nil) })

	job, ok := sched.Enqueue(engine.JobConfig{
		Steps:       built,
		Timeout:     timeout,
		MaxRetries:  maxRetries,
		FailOnBusy:  engineDefaults.FailOnBusy,
		AutoCleanup: true,
	})
	if !ok {
		return fmt.Errorf("jobctl: scheduler busy")
	}

	sched.ProcessQueue(ctx)
	<-job.Done()

	if job.Success() {
		fmt.Printf("workflow %q completed successfully\n", wf.Name)
		return nil
	}

	classified := engineerrors.Classify(job.Err())
	return fmt.Errorf("workflow %q failed: %v (category=%s retryable=%v)",
		wf.Name, classified, classified.Category, classified.Retryable)
}

func emitEvent(kind, jobID string, detail interface{}) {
	if jsonOutput {
		data, _ := json.Marshal(map[string]interface{}{"event": kind, "job_id": jobID, "detail": detail})
		fmt.Println(string(data))
		return
	}
	if detail != nil {
		fmt.Printf("[%s] %s: %v\n", kind, jobID, detail)
	} else {
		fmt.Printf("[%s] %s\n", kind, jobID)
	}
}
