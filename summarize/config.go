// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package summarize

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/docproc/config"
)

// Config tunes both the LLM path and the extractive fallback.
type Config struct {
	TargetWords   int
	Temperature   float64
	Timeout       time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// Texts longer than MapReduceThresholdWords are summarized in groups of
	// at most MapReduceGroupWords words before a final reduce call.
	MapReduceThresholdWords int
	MapReduceGroupWords     int

	PositionWeight  float64
	FrequencyWeight float64
}

// DefaultConfig returns the defaults used by config.DefaultConfig.
func DefaultConfig() Config {
	return FromConfig(config.DefaultConfig())
}

// FromConfig copies the summarization settings out of cfg.
func FromConfig(cfg *config.Config) Config {
	return Config{
		TargetWords:             cfg.SummaryTargetWords,
		Temperature:             cfg.LLMTemperature,
		Timeout:                 cfg.LLMTimeout,
		MaxAttempts:             cfg.LLMMaxAttempts,
		RetryDelay:              cfg.LLMRetryDelay,
		MaxRetryDelay:           cfg.LLMMaxRetryDelay,
		MapReduceThresholdWords: cfg.MapReduceThresholdWords,
		MapReduceGroupWords:     cfg.MapReduceGroupWords,
		PositionWeight:          cfg.PositionWeight,
		FrequencyWeight:         cfg.FrequencyWeight,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.TargetWords > 0, "target words must be positive, got %d", c.TargetWords)
	check(c.Temperature >= 0 && c.Temperature <= 1, "temperature must be in [0,1], got %v", c.Temperature)
	check(c.Timeout >= 0, "timeout must not be negative")
	check(c.MaxAttempts > 0, "max attempts must be positive, got %d", c.MaxAttempts)
	check(c.RetryDelay >= 0 && c.MaxRetryDelay >= 0, "retry delays must not be negative")
	check(c.MapReduceThresholdWords > 0, "map-reduce threshold must be positive")
	check(c.MapReduceGroupWords > 0, "map-reduce group size must be positive")
	check(c.PositionWeight >= 0 && c.FrequencyWeight >= 0, "salience weights must not be negative")
	check(c.PositionWeight+c.FrequencyWeight > 0, "at least one salience weight must be positive")
	return errors.Join(errs...)
}
