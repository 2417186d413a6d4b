package funding

import (
	"math"

	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// HealthSignal classifies a project's funding health.
type HealthSignal string

const (
	// SignalReached: current recurring total meets or exceeds the target.
	SignalReached HealthSignal = "reached"
	// SignalOK: at or above the warning threshold but short of the target.
	// Not surfaced as an alert; the project simply carries no flag.
	SignalOK HealthSignal = "ok"
	// SignalWarning: below the warning threshold.
	SignalWarning HealthSignal = "warning"
	// SignalCritical: below the critical threshold.
	SignalCritical HealthSignal = "critical"
)

// Default alert thresholds applied when a project owner has not configured any.
const (
	DefaultWarningThreshold  = 60
	DefaultCriticalThreshold = 30
)

// AlertThresholds are owner-configured achievement-rate percentages.
// CriticalThreshold must stay below WarningThreshold; Validate enforces this
// at write time.
type AlertThresholds struct {
	WarningThreshold  int `json:"warning_threshold"`
	CriticalThreshold int `json:"critical_threshold"`
}

// Validate checks threshold ranges and ordering.
func (a AlertThresholds) Validate() error {
	if a.WarningThreshold < 1 || a.WarningThreshold > 100 {
		return dErrors.New(dErrors.CodeValidation, "warning threshold must be between 1 and 100")
	}
	if a.CriticalThreshold < 1 || a.CriticalThreshold > 100 {
		return dErrors.New(dErrors.CodeValidation, "critical threshold must be between 1 and 100")
	}
	if a.CriticalThreshold >= a.WarningThreshold {
		return dErrors.New(dErrors.CodeValidation, "critical threshold must be below warning threshold")
	}
	return nil
}

// DefaultThresholds returns the platform defaults.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		WarningThreshold:  DefaultWarningThreshold,
		CriticalThreshold: DefaultCriticalThreshold,
	}
}

// Achievement is the derived funding state of a project.
type Achievement struct {
	Target  id.Money `json:"target"`
	Current id.Money `json:"current"`
	// Rate is the achievement percentage, rounded. 0 when there is no target.
	Rate int `json:"rate"`
	// Signal is empty when HasTarget is false; the UI hides achievement
	// displays entirely rather than showing "0%".
	Signal HealthSignal `json:"signal,omitempty"`
	// Reached is the binary mark shown in navigation: current >= target,
	// only when a target exists.
	Reached bool `json:"reached"`
	// HasTarget is false for projects with no pledge configuration.
	HasTarget bool `json:"has_target"`
}

// EvaluateAchievement derives rate and health signal from a resolved target
// and the live sum of active recurring donations. Never divides by zero:
// target 0 yields rate 0 with no signal.
func EvaluateAchievement(target, current id.Money, alerts *AlertThresholds) Achievement {
	if target <= 0 {
		return Achievement{Target: target, Current: current}
	}

	th := DefaultThresholds()
	if alerts != nil {
		th = *alerts
	}

	rate := int(math.Round(float64(current) / float64(target) * 100))
	reached := current >= target

	var signal HealthSignal
	switch {
	case reached || rate >= 100:
		signal = SignalReached
	case rate < th.CriticalThreshold:
		signal = SignalCritical
	case rate < th.WarningThreshold:
		signal = SignalWarning
	default:
		signal = SignalOK
	}

	return Achievement{
		Target:    target,
		Current:   current,
		Rate:      rate,
		Signal:    signal,
		Reached:   reached,
		HasTarget: true,
	}
}
