package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logOut io.Writer
	out    io.Writer
}

func newApplication(opts ...Option) *application {
	app := &application{
		config: NewDefaultConfig(),
		logOut: os.Stdout,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sets where structured logs are written.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithOutput sets where Exec prints command replies.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}
