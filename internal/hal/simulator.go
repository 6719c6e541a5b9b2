package hal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/smartlock/internal/lock"
)

// ErrSensorFault is returned by ReadSensor while a sensor fault is injected.
var ErrSensorFault = errors.New("simulated sensor fault")

// Simulator is an in-memory lock.Hardware.
// Each relay pulse flips the bolt; the sensor reports Connected while the
// bolt is locked and not jammed.
type Simulator struct {
	// mu protects every field below.
	mu sync.Mutex

	// boltLocked is the physical bolt position.
	boltLocked bool
	// jammed keeps the sensor disconnected regardless of the bolt.
	jammed bool
	// sensorFault makes ReadSensor fail.
	sensorFault bool
	// beeper is the beeper output level.
	beeper bool

	// pulses counts relay pulses.
	pulses int
	// sensorReads counts sensor samples.
	sensorReads int
	// beeperWrites counts beeper level changes.
	beeperWrites int
	// delays counts requested delays.
	delays int
	// lastDelay is the most recently requested delay.
	lastDelay time.Duration
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithBoltLocked sets the initial bolt position.
func WithBoltLocked(locked bool) SimulatorOption {
	return func(s *Simulator) {
		s.boltLocked = locked
	}
}

// WithJammed starts the simulator with a jammed bolt.
func WithJammed(jammed bool) SimulatorOption {
	return func(s *Simulator) {
		s.jammed = jammed
	}
}

// NewSimulator creates a simulator. By default the bolt is locked.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		boltLocked: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Configure drives the beeper low. The relay is a toggle, so configuring it
// does not move the bolt.
func (s *Simulator) Configure(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beeper = false

	return nil
}

// ReadSensor implements lock.Hardware.
func (s *Simulator) ReadSensor(context.Context) (lock.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sensorReads++

	if s.sensorFault {
		return lock.SensorDisconnected, ErrSensorFault
	}

	if s.boltLocked && !s.jammed {
		return lock.SensorConnected, nil
	}

	return lock.SensorDisconnected, nil
}

// PulseRelay implements lock.Hardware.
func (s *Simulator) PulseRelay(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pulses++
	s.boltLocked = !s.boltLocked

	return nil
}

// SetBeeper implements lock.Hardware.
func (s *Simulator) SetBeeper(_ context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.beeper != on {
		s.beeperWrites++
	}

	s.beeper = on

	return nil
}

// Delay waits on a timer so that the calling goroutine parks instead of spinning.
func (s *Simulator) Delay(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays++
	s.lastDelay = d
	s.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jam makes the sensor report disconnected until cleared.
func (s *Simulator) Jam(jammed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jammed = jammed
}

// FailSensor makes sensor reads return ErrSensorFault until cleared.
func (s *Simulator) FailSensor(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sensorFault = fail
}

// SimulatorState is a point-in-time view of the simulator.
type SimulatorState struct {
	// BoltLocked is the physical bolt position.
	BoltLocked bool
	// Jammed reports an injected jam.
	Jammed bool
	// Beeper is the beeper level.
	Beeper bool
	// Pulses is the number of relay pulses so far.
	Pulses int
	// SensorReads is the number of sensor samples so far.
	SensorReads int
	// BeeperWrites is the number of beeper level changes so far.
	BeeperWrites int
	// Delays is the number of delays requested so far.
	Delays int
	// LastDelay is the most recently requested delay.
	LastDelay time.Duration
}

// State returns a copy of the simulator state.
func (s *Simulator) State() SimulatorState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SimulatorState{
		BoltLocked:   s.boltLocked,
		Jammed:       s.jammed,
		Beeper:       s.beeper,
		Pulses:       s.pulses,
		SensorReads:  s.sensorReads,
		BeeperWrites: s.beeperWrites,
		Delays:       s.delays,
		LastDelay:    s.lastDelay,
	}
}
