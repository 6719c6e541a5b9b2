package lock

import (
	"context"
	"time"

	"github.com/oshokin/smartlock/internal/protocol"
)

// Sensor is the bolt sensor reading.
type Sensor int

const (
	// SensorDisconnected means the bolt is not seated.
	SensorDisconnected Sensor = iota
	// SensorConnected means the bolt is seated, i.e. the lock is closed.
	SensorConnected
)

// String implements fmt.Stringer.
func (s Sensor) String() string {
	if s == SensorConnected {
		return "connected"
	}

	return "disconnected"
}

// Hardware is the physical side of the lock: one relay, one sensor, one beeper.
type Hardware interface {
	// Configure drives every output to its quiescent level.
	Configure(ctx context.Context) error
	// ReadSensor samples the bolt sensor.
	ReadSensor(ctx context.Context) (Sensor, error)
	// PulseRelay toggles the bolt relay. Two pulses restore the original position.
	PulseRelay(ctx context.Context) error
	// SetBeeper drives the beeper to the given level.
	SetBeeper(ctx context.Context, on bool) error
	// Delay waits for d or until ctx is done.
	Delay(ctx context.Context, d time.Duration) error
}

// Sender carries result codes back to the peer.
type Sender interface {
	SendResult(ctx context.Context, result protocol.Result) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, result protocol.Result) error

// SendResult calls f.
func (f SenderFunc) SendResult(ctx context.Context, result protocol.Result) error {
	return f(ctx, result)
}
