package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

// Controller owns the lock record and serializes every mutation of it.
type Controller struct {
	// hw drives the relay, beeper and sensor.
	hw Hardware
	// sender delivers result codes to the peer.
	sender Sender

	// settleDelay is the debounce wait before a sensor sample.
	settleDelay time.Duration
	// beepDuration is the beeper on-time of a success pattern.
	beepDuration time.Duration
	// alarmThreshold is the count after which the alarm latches.
	alarmThreshold int

	// mu is held for the whole of a command or a poll tick.
	mu sync.Mutex
	// record is the live lock state, guarded by mu.
	record *domain.Record
	// published is a copy of record readable without taking mu.
	published atomic.Pointer[domain.Record]
}

// New creates a controller. Call Initialize before feeding it commands.
func New(hw Hardware, sender Sender, opts ...Option) *Controller {
	c := &Controller{
		hw:             hw,
		sender:         sender,
		settleDelay:    DefaultSettleDelay,
		beepDuration:   DefaultBeepDuration,
		alarmThreshold: DefaultAlarmThreshold,
		record:         domain.NewRecord(domain.StatusLocked),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.publish()

	return c
}

// Initialize resets the record and derives the bolt status from the sensor.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initialize(ctx)
}

// Snapshot returns a copy of the most recently published record.
// It never blocks on a command in flight.
func (c *Controller) Snapshot() *domain.Record {
	return c.published.Load().Clone()
}

// initialize clears the record, quiets the outputs and reads the sensor once.
// The caller holds mu.
func (c *Controller) initialize(ctx context.Context) {
	if err := c.hw.Configure(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to configure lock outputs", "error", err)
	}

	status := domain.StatusUnlocked
	if c.sensorConfirms(ctx) {
		status = domain.StatusLocked
	}

	c.record = domain.NewRecord(status)
	c.publish()

	logger.InfoKV(ctx, "Lock initialized", "status", status)
}

// setLockStatus moves the bolt to target. The relay is a toggle, so it is
// pulsed only when the commanded position actually changes.
func (c *Controller) setLockStatus(ctx context.Context, target domain.Status) {
	if c.record.Status.Commanded() != target.Commanded() {
		if err := c.hw.PulseRelay(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to pulse relay", "target", target, "error", err)
		}
	}

	c.record.Status = target
}

// actuateBeep drives the beeper only when the requested level differs from
// the recorded one.
func (c *Controller) actuateBeep(ctx context.Context, enable bool) {
	if c.record.BeepOn == enable {
		return
	}

	if err := c.hw.SetBeeper(ctx, enable); err != nil {
		logger.ErrorKV(ctx, "Failed to drive beeper", "enable", enable, "error", err)

		return
	}

	c.record.BeepOn = enable
}

// successBeep plays off, on for beepDuration, off.
func (c *Controller) successBeep(ctx context.Context) {
	c.actuateBeep(ctx, false)
	c.actuateBeep(ctx, true)
	c.delay(ctx, c.beepDuration)
	c.actuateBeep(ctx, false)
}

// confirmLock records a sensor-confirmed lock.
func (c *Controller) confirmLock(ctx context.Context) {
	c.record.AlarmCount = 0
	c.successBeep(ctx)
	c.record.Status = domain.StatusLocked
}

// sensorConfirms samples the sensor; read failures count as not confirmed.
func (c *Controller) sensorConfirms(ctx context.Context) bool {
	sensor, err := c.hw.ReadSensor(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to read lock sensor", "error", err)

		return false
	}

	return sensor == SensorConnected
}

// delay waits on the hardware clock and logs if the wait was cut short.
func (c *Controller) delay(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	if err := c.hw.Delay(ctx, d); err != nil {
		logger.DebugKV(ctx, "Delay interrupted", "duration", d, "error", err)
	}
}

// send delivers one result code to the peer.
func (c *Controller) send(ctx context.Context, result protocol.Result) {
	if err := c.sender.SendResult(ctx, result); err != nil {
		logger.ErrorKV(ctx, "Failed to send result", "result", result, "error", err)
	}
}

// publish stores a copy of the record for Snapshot readers.
func (c *Controller) publish() {
	c.published.Store(c.record.Clone())
}
