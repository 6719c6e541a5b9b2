package lock

import (
	"context"

	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/logger"
	"github.com/oshokin/smartlock/internal/protocol"
)

// HandleCommand processes one inbound frame. It emits at most one result code;
// unknown commands and empty frames are logged and dropped without a reply.
// A frame for a known command that is too short or malformed is answered
// with CodeInvalid and leaves the record untouched.
func (c *Controller) HandleCommand(ctx context.Context, frame []byte) {
	cmd, err := protocol.CommandOf(frame)
	if err != nil {
		logger.WarnKV(ctx, "Dropping frame", "error", err)

		return
	}

	ctx = logger.WithKV(ctx, "command", cmd)

	if !cmd.Known() {
		logger.WarnKV(ctx, "Dropping unknown command", "frame_len", len(frame))

		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.record.Busy = true
	c.publish()

	defer func() {
		c.record.Busy = false
		c.publish()
	}()

	result, reply := c.dispatch(ctx, cmd, frame)
	if !reply {
		return
	}

	logger.InfoKV(ctx, "Command handled", "result", result)
	c.send(ctx, result)
}

// dispatch runs one command and reports the result to send, if any.
func (c *Controller) dispatch(ctx context.Context, cmd protocol.Command, frame []byte) (protocol.Result, bool) {
	switch cmd {
	case protocol.CommandUnlock:
		return c.unlock(ctx, frame), true
	case protocol.CommandLock:
		return c.lock(ctx)
	case protocol.CommandUpdateCodes:
		return c.updateCodes(ctx, frame), true
	case protocol.CommandAppReady:
		return c.appReady(), true
	case protocol.CommandReset:
		c.initialize(ctx)

		return protocol.ResultResetSuccess, true
	default:
		return 0, false
	}
}

// unlock validates a presented code and releases the bolt on success.
// Checks run in a fixed order: remaining codes, device binding, expiry, code.
// Nothing is written until every check has passed.
func (c *Controller) unlock(ctx context.Context, frame []byte) protocol.Result {
	req, err := protocol.DecodeUnlock(frame)
	if err != nil {
		logger.WarnKV(ctx, "Malformed unlock frame", "error", err)

		return protocol.ResultCodeInvalid
	}

	r := c.record

	// A single remaining code is already treated as spent.
	if r.ValidCodeCount <= 1 {
		logger.WarnKV(ctx, "Lock needs new codes", "valid_codes", r.ValidCodeCount)

		return protocol.ResultCodeExhausted
	}

	if r.DeviceBound && !r.BoundDevice.Equal(req.Device) {
		logger.WarnKV(ctx, "Unlock from foreign device", "device", req.Device, "bound", r.BoundDevice)

		return protocol.ResultDeviceMismatch
	}

	if !req.Stamp.Within(r.Expiry) {
		logger.WarnKV(ctx, "Codes are out of date", "presented", req.Stamp, "expiry", r.Expiry)

		return protocol.ResultCodeExpired
	}

	slot := r.FindCode(req.Code)
	if slot < 0 {
		logger.WarnKV(ctx, "Access code did not match", "valid_codes", r.ValidCodeCount)

		return protocol.ResultUnlockMismatch
	}

	r.ConsumeSlot(slot)

	if !r.DeviceBound {
		r.BoundDevice = req.Device
		r.DeviceBound = true

		logger.InfoKV(ctx, "Lock bound to device", "device", req.Device)
	}

	c.setLockStatus(ctx, domain.StatusUnlocked)

	c.actuateBeep(ctx, true)
	c.delay(ctx, c.beepDuration)
	c.actuateBeep(ctx, false)

	logger.InfoKV(ctx, "Unlocked", "slot", slot, "valid_codes", r.ValidCodeCount)

	return protocol.ResultUnlockSuccess
}

// lock drives the bolt closed and tries to confirm it right away. An
// unconfirmed lock produces no reply; the supervisor reports on later ticks.
func (c *Controller) lock(ctx context.Context) (protocol.Result, bool) {
	c.setLockStatus(ctx, domain.StatusLocked)
	c.delay(ctx, c.settleDelay)

	if c.sensorConfirms(ctx) {
		c.confirmLock(ctx)

		return protocol.ResultLockSuccess, true
	}

	c.record.Status = domain.StatusUnusable

	logger.WarnKV(ctx, "Lock not confirmed by sensor, supervising", "alarm_count", c.record.AlarmCount)

	return 0, false
}

// updateCodes replaces the code table, device id and expiry. The device
// binding flag is left as it is.
func (c *Controller) updateCodes(ctx context.Context, frame []byte) protocol.Result {
	req, err := protocol.DecodeUpdate(frame)
	if err != nil {
		logger.WarnKV(ctx, "Rejected code update", "error", err)

		return protocol.ResultCodeInvalid
	}

	c.record.ReplaceCodes(req.Codes, req.Device, req.Expiry)

	logger.InfoKV(ctx, "Access codes updated",
		"valid_codes", c.record.ValidCodeCount,
		"expiry", req.Expiry,
		"device_bound", c.record.DeviceBound)

	return protocol.ResultUpdateSuccess
}

// appReady answers the handshake with the current status, or asks for codes
// when none were provisioned since the last reset.
func (c *Controller) appReady() protocol.Result {
	if !c.record.Provisioned {
		return protocol.ResultDeviceNeedsUpdate
	}

	return c.record.Status.Report()
}
