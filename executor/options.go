package executor

import "runtime"

// Options configures Execute.
type Options struct {
	Workers int
}

// Option configures Options.
type Option func(*Options)

func newOptions(opts ...Option) Options {
	o := Options{Workers: runtime.GOMAXPROCS(0)}
	for _, apply := range opts {
		apply(&o)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// WithWorkers sets the number of goroutines routing rows concurrently.
// Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}
