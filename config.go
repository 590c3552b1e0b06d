package banditpool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds everything a Pool needs besides its Evaluator.
//
// Serializable fields can be loaded from YAML/JSON with LoadConfig. Runtime
// fields (Score, Logger, ProgressChan, Substrate) must be set in code.
//
// Usage example:
//
//	config := DefaultConfig()
//	config.ExplorationCoefficient = 2.0
//	config.OptimizeMax = false // lower objective values are better
//
//	pool, err := NewPool[*Optimizer](config, evaluator)
//
// Note:
//   - Create separate configs for pools that run in parallel, ProgressChan
//     and Substrate are not meant to be shared.
type Config struct {
	// ExplorationCoefficient weights the confidence bonus of the score.
	// 0 = pure exploitation. Typical values range from 0.5 to 5.
	ExplorationCoefficient float64 `json:"exploration_coefficient" yaml:"exploration_coefficient" validate:"gte=0"`

	// OptimizeMax selects maximization of the raw objective. When false the
	// pool minimizes.
	OptimizeMax bool `json:"optimize_max" yaml:"optimize_max"`

	// UseMultiThreading makes Play dispatch through the Substrate with up to
	// Parallelism evaluations in flight.
	UseMultiThreading bool `json:"use_multi_threading" yaml:"use_multi_threading"`

	// Parallelism bounds the number of in-flight evaluations in Play.
	Parallelism int `json:"parallelism" yaml:"parallelism" validate:"gte=1,lte=4096"`

	// MaxEvaluationsPerSecond throttles the default substrate. 0 disables.
	MaxEvaluationsPerSecond float64 `json:"max_evaluations_per_second" yaml:"max_evaluations_per_second" validate:"gte=0"`

	// ScoreName selects a built-in score function. It is resolved by NewPool
	// whenever Score is nil.
	ScoreName string `json:"score" yaml:"score" validate:"omitempty,oneof=ucb1 ucb-tuned greedy"`

	// TracingEnabled emits an OpenTelemetry span per evaluation.
	TracingEnabled bool `json:"tracing_enabled" yaml:"tracing_enabled"`

	// Score overrides ScoreName with a custom score function. Leave it nil to
	// use the built-in named by ScoreName.
	Score ScoreFunc `json:"-" yaml:"-"`

	// Logger receives structured logs. nil means slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`

	// ProgressChan receives an update after every observation. Updates are
	// dropped when the channel is full. nil disables progress updates.
	//
	// Completions keep sending after a cancelled Play returns. Call Wait
	// until it succeeds before closing the channel.
	ProgressChan chan<- ProgressUpdate `json:"-" yaml:"-"`

	// Substrate runs asynchronous evaluations. nil means a GroupSubstrate
	// sized by Parallelism and MaxEvaluationsPerSecond.
	Substrate Substrate `json:"-" yaml:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns a default configuration: UCB1 with exploration
// coefficient 1, maximizing, synchronous.
func DefaultConfig() Config {
	return Config{
		ExplorationCoefficient: 1.0,
		OptimizeMax:            true,
		UseMultiThreading:      false,
		Parallelism:            runtime.NumCPU(),
		ScoreName:              ScoreUCB1,
	}
}

// Validate checks the serializable fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// LoadConfig builds a Config from defaults, an optional YAML (or JSON) file,
// and BANDITPOOL_* environment overrides, then validates it.
//
// Environment variables:
//   - BANDITPOOL_EXPLORATION_COEFFICIENT
//   - BANDITPOOL_OPTIMIZE_MAX
//   - BANDITPOOL_USE_MULTI_THREADING
//   - BANDITPOOL_PARALLELISM
//   - BANDITPOOL_MAX_EVALUATIONS_PER_SECOND
//   - BANDITPOOL_SCORE
//   - BANDITPOOL_TRACING_ENABLED
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		if err := loadConfigFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}

	if _, err := ScoreFuncByName(config.ScoreName); err != nil {
		return config, err
	}

	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}

	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("BANDITPOOL_EXPLORATION_COEFFICIENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.ExplorationCoefficient = f
		}
	}

	if v := os.Getenv("BANDITPOOL_OPTIMIZE_MAX"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.OptimizeMax = b
		}
	}

	if v := os.Getenv("BANDITPOOL_USE_MULTI_THREADING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.UseMultiThreading = b
		}
	}

	if v := os.Getenv("BANDITPOOL_PARALLELISM"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Parallelism = i
		}
	}

	if v := os.Getenv("BANDITPOOL_MAX_EVALUATIONS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.MaxEvaluationsPerSecond = f
		}
	}

	if v := os.Getenv("BANDITPOOL_SCORE"); v != "" {
		config.ScoreName = v
	}

	if v := os.Getenv("BANDITPOOL_TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.TracingEnabled = b
		}
	}
}
