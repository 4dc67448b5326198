package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration validates that a duration is greater than
// zero. Used for timeouts, intervals, windows, and TTLs where zero or
// negative values are never meaningful.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateDurationRange validates that a duration lies within
// [min, max] inclusive.
//
// Example:
//
//	if err := ValidateDurationRange(maxDelay, initialDelay, 10*time.Minute); err != nil {
//	    return fmt.Errorf("invalid max delay: %w", err)
//	}
func ValidateDurationRange(d, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}
	if d < min {
		return fmt.Errorf("duration %v is below minimum %v", d, min)
	}
	if d > max {
		return fmt.Errorf("duration %v exceeds maximum %v", d, max)
	}
	return nil
}
