package engine

import "github.com/riftlane/jobforge/pkg/logger"

// Option configures a Job, CompositeJob, or Scheduler at construction.
type Option func(*options)

type options struct {
	logger *logger.Logger
}

func defaultOptions() *options {
	return &options{logger: logger.Default()}
}

// WithLogger overrides the diagnostic sink used for this Job's failure
// warnings. Defaults to the package-level logger.Default().
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
