package sink

import "github.com/rickgao/vessel-tracker/internal/model"

// Sink receives status events from the tracker.
type Sink interface {
	// OnUpdate is called once per accepted vessel update.
	OnUpdate(event model.StatusEvent)

	// OnError is called for recoverable faults (decode, connection).
	OnError(message string)

	// OnPeriodicStatus is called with a read-only snapshot of all vessels.
	OnPeriodicStatus(snapshot []model.VesselState)
}

// Multi fans calls out to every sink in order.
type Multi []Sink

func (m Multi) OnUpdate(event model.StatusEvent) {
	for _, s := range m {
		s.OnUpdate(event)
	}
}

func (m Multi) OnError(message string) {
	for _, s := range m {
		s.OnError(message)
	}
}

func (m Multi) OnPeriodicStatus(snapshot []model.VesselState) {
	for _, s := range m {
		s.OnPeriodicStatus(snapshot)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) OnUpdate(model.StatusEvent)           {}
func (Discard) OnError(string)                       {}
func (Discard) OnPeriodicStatus([]model.VesselState) {}
