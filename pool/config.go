package pool

import (
	"time"

	"github.com/go-playground/validator/v10"

	wapc "github.com/wapc-sdk/wapc-go"
)

// Defaults describe a conservative starting point: a single core worker,
// room to grow to two, a 100ms grow threshold, and a five minute idle
// window before a worker above the minimum retires.
const (
	DefaultMinThreads = 1
	DefaultMaxThreads = 2
	DefaultMaxWait    = 100 * time.Millisecond
	DefaultMaxIdle    = 5 * time.Minute
)

var validate = validator.New()

// Factory produces a fresh Host on demand: once when a worker is started,
// and again whenever a worker's Host is poisoned by a panic and must be
// reconstructed.
type Factory func() (*wapc.Host, error)

// Config describes one Pool's elasticity parameters. MinThreads,
// MaxThreads, MaxWait and MaxIdle are validated with struct tags rather
// than hand-rolled checks; Factory cannot be expressed as a tag and is
// checked separately in New.
type Config struct {
	Name       string        `validate:"required"`
	MinThreads int           `validate:"required,min=1"`
	MaxThreads int           `validate:"required,min=1,gtefield=MinThreads"`
	MaxWait    time.Duration `validate:"required"`
	MaxIdle    time.Duration `validate:"required"`

	// AbortOnClose selects Close's shutdown policy. The zero value
	// (false) drains: work already accepted before Close was called runs
	// to completion. Setting it true aborts anything not yet assigned to
	// a worker with PoolShutdownError instead of waiting for it.
	AbortOnClose bool `validate:"-"`

	Factory Factory `validate:"-"`
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "wapc pool"
	}
	if c.MinThreads == 0 {
		c.MinThreads = DefaultMinThreads
	}
	if c.MaxThreads == 0 {
		c.MaxThreads = DefaultMaxThreads
		if c.MaxThreads < c.MinThreads {
			c.MaxThreads = c.MinThreads
		}
	}
	if c.MaxWait == 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = DefaultMaxIdle
	}
	return c
}
