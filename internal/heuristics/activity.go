package heuristics

// idleResetWindow is the target-activity time constant, in seconds:
// targetActivity = max(0, 1 - idleSeconds/idleResetWindow).
const idleResetWindow = 30.0

// smoothingFactor is the per-tick exponential smoothing weight applied
// to the gap between target and current activity.
const smoothingFactor = 0.1

// ActivityMonitor tracks input idle time and derives a smoothed
// [0,1] activity scalar from it.
type ActivityMonitor struct {
	idleSeconds float64
	smoothed    float64
}

// NewActivityMonitor returns a monitor parked at zero activity.
func NewActivityMonitor() *ActivityMonitor {
	return &ActivityMonitor{}
}

// Update advances the monitor by dt seconds given the current idle
// duration reported by the platform idle detector. Passing idleSeconds
// == 0 models a fresh input event.
func (a *ActivityMonitor) Update(dt, idleSeconds float64) {
	a.idleSeconds = idleSeconds
	target := 1.0 - idleSeconds/idleResetWindow
	if target < 0 {
		target = 0
	}
	a.smoothed += (target - a.smoothed) * smoothingFactor
	if a.smoothed < 0 {
		a.smoothed = 0
	} else if a.smoothed > 1 {
		a.smoothed = 1
	}
}

// Activity returns the smoothed activity level in [0,1].
func (a *ActivityMonitor) Activity() float64 { return a.smoothed }

// IdleTime returns the idle duration, in seconds, last supplied to Update.
func (a *ActivityMonitor) IdleTime() float64 { return a.idleSeconds }
