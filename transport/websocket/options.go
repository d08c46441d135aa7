package websocket

import (
	"github.com/inconshreveable/log15/v3"
)

// Option configures a Manager, Router or Hub
type Option func(*options)

type options struct {
	logger log15.Logger
}

// WithLogger replaces the package logger
func WithLogger(logger log15.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{logger: log15.New("module", "websocket")}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.New("component", component)
	return o
}
