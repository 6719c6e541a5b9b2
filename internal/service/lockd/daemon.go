package lockd

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/smartlock/internal/config"
	domain "github.com/oshokin/smartlock/internal/domain/lock"
	"github.com/oshokin/smartlock/internal/hal"
	"github.com/oshokin/smartlock/internal/lock"
	"github.com/oshokin/smartlock/internal/metrics"
	"github.com/oshokin/smartlock/internal/transport/hub"
	"github.com/oshokin/smartlock/internal/transport/intake"
)

// daemon holds the wired lock components.
type daemon struct {
	// hw is the hardware driver.
	hw *hal.Simulator
	// results fans result codes out to every link.
	results *hub.Hub
	// metrics counts commands, results and drops.
	metrics *metrics.Metrics
	// core is the lock state machine.
	core *lock.Controller
	// intake is the shared entry point for inbound frames.
	intake *intake.Intake
	// pollInterval is the supervisor period.
	pollInterval time.Duration
}

// newDaemon wires the lock from validated settings and initializes it.
func newDaemon(ctx context.Context, settings *config.Config) (*daemon, error) {
	hw, err := newHardware(settings.Hardware)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		hw:           hw,
		pollInterval: settings.Lock.PollInterval,
	}

	d.metrics = metrics.New(func() *domain.Record {
		if d.core == nil {
			return nil
		}

		return d.core.Snapshot()
	})

	d.results = hub.New(hub.WithDropHook(d.metrics.ObserveMissedResult))

	d.core = lock.New(hw, d.metrics.Sender(d.results),
		lock.WithSettleDelay(settings.Lock.SettleDelay),
		lock.WithBeepDuration(settings.Lock.BeepDuration),
		lock.WithAlarmThreshold(settings.Lock.AlarmThreshold),
	)

	d.intake = intake.New(d.core,
		intake.WithRateLimit(settings.Intake.RateLimit, settings.Intake.Burst),
		intake.WithFrameHook(d.metrics.ObserveCommand),
		intake.WithDropHook(d.metrics.ObserveDrop),
	)

	d.core.Initialize(ctx)

	return d, nil
}

// newHardware builds the configured driver.
func newHardware(settings config.HardwareSettings) (*hal.Simulator, error) {
	switch settings.Driver {
	case config.DriverSimulator, "":
		return hal.NewSimulator(hal.WithBoltLocked(!settings.StartUnlocked)), nil
	default:
		return nil, fmt.Errorf("unsupported hardware driver %q", settings.Driver)
	}
}

// supervise calls Poll every pollInterval until ctx is canceled.
func (d *daemon) supervise(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.core.Poll(ctx)
		}
	}
}
