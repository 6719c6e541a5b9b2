package lock

import "time"

const (
	// DefaultSettleDelay is the debounce wait before sampling the sensor.
	DefaultSettleDelay = 50 * time.Millisecond
	// DefaultBeepDuration is how long the beeper sounds for a success pattern.
	DefaultBeepDuration = 200 * time.Millisecond
	// DefaultAlarmThreshold is the number of failed confirmations before the
	// beeper is latched on.
	DefaultAlarmThreshold = 20
)

// Option configures a Controller.
type Option func(*Controller)

// WithSettleDelay sets the sensor settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settleDelay = d
		}
	}
}

// WithBeepDuration sets the beeper on-time for success patterns.
func WithBeepDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.beepDuration = d
		}
	}
}

// WithAlarmThreshold sets how many failed confirmations are counted before
// the continuous alarm starts.
func WithAlarmThreshold(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.alarmThreshold = n
		}
	}
}
