package lock

import (
	"context"

	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

// Poll runs one supervision tick. It is skipped entirely, without touching
// the sensor, while a command is being handled.
func (c *Controller) Poll(ctx context.Context) {
	if !c.mu.TryLock() {
		logger.Debug(ctx, "Command in flight, skipping poll")

		return
	}
	defer c.mu.Unlock()

	if c.record.Busy {
		return
	}

	c.delay(ctx, c.settleDelay)

	if ctx.Err() != nil {
		return
	}

	confirmed := c.sensorConfirms(ctx)

	switch c.record.Status {
	case domain.StatusLocked, domain.StatusUnlocked:
		return
	case domain.StatusUnusable:
		c.superviseUnusable(ctx, confirmed)
		c.publish()
	}
}

// superviseUnusable confirms a delayed lock or escalates the alarm.
func (c *Controller) superviseUnusable(ctx context.Context, confirmed bool) {
	if confirmed {
		c.confirmLock(ctx)

		logger.Info(ctx, "Lock confirmed by sensor")
		c.send(ctx, protocol.ResultLockSuccess)

		return
	}

	c.send(ctx, protocol.ResultLockFail)

	r := c.record
	if r.AlarmCount <= c.alarmThreshold {
		r.AlarmCount++
	}

	if r.AlarmCount > c.alarmThreshold {
		c.actuateBeep(ctx, true)
	}

	logger.WarnKV(ctx, "Lock still not confirmed", "alarm_count", r.AlarmCount, "alarm", r.BeepOn)
}
