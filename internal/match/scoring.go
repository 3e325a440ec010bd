package match

import (
	"fmt"
	"math"
	"sync"
	"time"

	"vocab-battle/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// ValidateConfig checks a match configuration before a match is created.
func ValidateConfig(cfg domain.MatchConfig) error {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: match config: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Score converts one answer into points. Incorrect answers earn nothing. Correct
// answers earn BasePoints plus MaxBonus scaled by the share of time left, rounded
// half away from zero. The share is clamped into [0, 1].
func Score(correct bool, timeRemaining time.Duration, cfg domain.MatchConfig) int {
	if !correct {
		return 0
	}
	if cfg.MaxTime <= 0 {
		return cfg.BasePoints
	}
	ratio := float64(timeRemaining) / float64(cfg.MaxTime)
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	return cfg.BasePoints + int(math.Round(float64(cfg.MaxBonus)*ratio))
}

// TimeRemaining is the unused share of the per-question budget, never negative.
func TimeRemaining(responseTime time.Duration, cfg domain.MatchConfig) time.Duration {
	left := cfg.MaxTime - responseTime
	if left < 0 {
		return 0
	}
	return left
}
