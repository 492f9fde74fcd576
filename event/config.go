package event

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/eventsys/env"
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
	"strings"
)

var (
	// DefaultNumWorkers is the number of goroutines used for asynchronous delivery.
	DefaultNumWorkers = 4
	// DefaultQueueSize is the number of asynchronous invocations that may wait for a worker.
	// When the queue is full, invocations run on their own goroutine rather than blocking the poster.
	DefaultQueueSize = 64
)

type dispatcherConf struct {
	numWorkers int
	queueSize  int
	logger     *slog.Logger
	onError    func(error)
}

// Option configures a [Dispatcher] created with [New] or [NewE].
type Option func(conf *dispatcherConf) error

// NumWorkers sets the number of asynchronous delivery goroutines. Must be >= 1.
func NumWorkers(n int) Option {
	return func(conf *dispatcherConf) error {
		if n < 1 {
			return fmt.Errorf("%w: worker count must be >= 1, got %d", ErrInvalidOption, n)
		}
		conf.numWorkers = n
		return nil
	}
}

// QueueSize sets the asynchronous delivery queue size. Must be >= 1.
func QueueSize(n int) Option {
	return func(conf *dispatcherConf) error {
		if n < 1 {
			return fmt.Errorf("%w: queue size must be >= 1, got %d", ErrInvalidOption, n)
		}
		conf.queueSize = n
		return nil
	}
}

// WithLogger sets the logger used for registration diagnostics and the default error handler.
func WithLogger(logger *slog.Logger) Option {
	return func(conf *dispatcherConf) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidOption)
		}
		conf.logger = logger
		return nil
	}
}

// WithErrorHandler sets a function to receive every [*ListenerError].
// The handler may be called concurrently during asynchronous delivery.
func WithErrorHandler(handler func(error)) Option {
	return func(conf *dispatcherConf) error {
		if handler == nil {
			return fmt.Errorf("%w: nil error handler", ErrInvalidOption)
		}
		conf.onError = handler
		return nil
	}
}

// FromConfig applies the dispatcher settings of a [Config].
func FromConfig(cfg Config) Option {
	return func(conf *dispatcherConf) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		conf.numWorkers = cfg.Workers
		conf.queueSize = cfg.QueueSize
		return nil
	}
}

// Config is the file and environment representation of dispatcher settings.
type Config struct {
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
}

// DefaultConfig returns a [Config] populated from [DefaultNumWorkers] and [DefaultQueueSize].
func DefaultConfig() Config {
	return Config{
		Workers:   DefaultNumWorkers,
		QueueSize: DefaultQueueSize,
		LogLevel:  "info",
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidOption, c.Workers))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("%w: queue_size must be >= 1, got %d", ErrInvalidOption, c.QueueSize))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML [Config] from path. Fields missing from the file keep their [DefaultConfig] values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv overrides fields of base with environment variables named PREFIX_WORKERS, PREFIX_QUEUE_SIZE, PREFIX_LOG_LEVEL, and PREFIX_LOG_FILE.
func ConfigFromEnv(prefix string, base Config) Config {
	prefix = strings.TrimSuffix(strings.ToUpper(prefix), "_")
	if len(prefix) > 0 {
		prefix += "_"
	}
	return Config{
		Workers:   env.Int(prefix+"WORKERS", base.Workers),
		QueueSize: env.Int(prefix+"QUEUE_SIZE", base.QueueSize),
		LogLevel:  env.Val(prefix+"LOG_LEVEL", base.LogLevel),
		LogFile:   env.Val(prefix+"LOG_FILE", base.LogFile),
	}
}
