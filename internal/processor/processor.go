package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/vessel-tracker/internal/feed"
	"github.com/rickgao/vessel-tracker/internal/model"
	"github.com/rickgao/vessel-tracker/internal/sink"
	"github.com/rickgao/vessel-tracker/internal/vessel"
)

// Outcome classifies what happened to a message.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeIgnoredType
	OutcomeMissingIdentifier
	OutcomeUntracked
	OutcomeMissingPosition
	OutcomeDecodeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnoredType:
		return "ignored_type"
	case OutcomeMissingIdentifier:
		return "missing_identifier"
	case OutcomeUntracked:
		return "untracked"
	case OutcomeMissingPosition:
		return "missing_position"
	case OutcomeDecodeError:
		return "decode_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes the handling of one message.
type Result struct {
	Outcome     Outcome
	MessageType string
	VesselID    string
	Update      *model.TelemetryUpdate // Set only for OutcomeApplied
	Err         error                  // Set only for OutcomeDecodeError
}

// Stats contains runtime counters, one per outcome.
type Stats struct {
	Received          int64
	Applied           int64
	IgnoredType       int64
	MissingIdentifier int64
	Untracked         int64
	MissingPosition   int64
	DecodeErrors      int64
}

// Processor validates, decodes and applies inbound messages.
type Processor struct {
	store  *vessel.Store
	sink   sink.Sink
	logger *slog.Logger
	now    func() time.Time

	received atomic.Int64
	outcomes [OutcomeDecodeError + 1]atomic.Int64
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the clock used for synthesized timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// New creates a Processor writing to store and reporting to s.
func New(store *vessel.Store, s sink.Sink, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil {
		s = sink.Discard{}
	}
	p := &Processor{
		store:  store,
		sink:   s,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle processes one message. It satisfies connection.Handler.
func (p *Processor) Handle(data []byte, receivedAt time.Time) {
	p.Process(data, receivedAt)
}

// Process handles one raw message and reports what happened to it.
func (p *Processor) Process(data []byte, receivedAt time.Time) Result {
	p.received.Add(1)

	env, err := feed.Decode(data)
	if err != nil {
		return p.fail(Result{}, err)
	}

	res := Result{MessageType: env.MessageType}
	if !env.Recognized() {
		return p.done(res, OutcomeIgnoredType)
	}

	res.VesselID = env.VesselID()
	if res.VesselID == "" {
		return p.done(res, OutcomeMissingIdentifier)
	}
	if !p.store.IsTracked(res.VesselID) {
		return p.done(res, OutcomeUntracked)
	}

	report, err := env.Report()
	if err != nil {
		// Counted even though nothing is installed.
		p.store.Record(res.VesselID)
		if errors.Is(err, feed.ErrMissingPayload) {
			return p.done(res, OutcomeMissingPosition)
		}
		return p.fail(res, fmt.Errorf("mmsi %s: %w", res.VesselID, err))
	}

	update, ok := p.telemetry(env, report)
	if !ok {
		count, _ := p.store.Record(res.VesselID)
		p.logger.Debug("report without usable position",
			"mmsi", res.VesselID,
			"type", env.MessageType,
			"messages", count,
		)
		return p.done(res, OutcomeMissingPosition)
	}

	count, _ := p.store.Apply(res.VesselID, update)
	ref, _ := p.store.Ref(res.VesselID)

	p.sink.OnUpdate(model.StatusEvent{
		VesselID:     res.VesselID,
		Name:         ref.DisplayName,
		MessageType:  env.MessageType,
		Update:       update,
		StatusLabel:  update.StatusLabel(),
		MessageCount: count,
		ReceivedAt:   receivedAt,
	})

	res.Update = &update
	return p.done(res, OutcomeApplied)
}

// Stats returns current counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Received:          p.received.Load(),
		Applied:           p.outcomes[OutcomeApplied].Load(),
		IgnoredType:       p.outcomes[OutcomeIgnoredType].Load(),
		MissingIdentifier: p.outcomes[OutcomeMissingIdentifier].Load(),
		Untracked:         p.outcomes[OutcomeUntracked].Load(),
		MissingPosition:   p.outcomes[OutcomeMissingPosition].Load(),
		DecodeErrors:      p.outcomes[OutcomeDecodeError].Load(),
	}
}

// telemetry builds an update from a report. Returns false when latitude or
// longitude is absent or out of range.
func (p *Processor) telemetry(env feed.Envelope, report feed.PositionReport) (model.TelemetryUpdate, bool) {
	if report.Latitude == nil || report.Longitude == nil {
		return model.TelemetryUpdate{}, false
	}

	pos := model.Position{Lat: *report.Latitude, Lon: *report.Longitude}
	if !pos.Valid() {
		return model.TelemetryUpdate{}, false
	}

	observedAt := env.MetaData.TimeUTC
	if observedAt == "" {
		observedAt = p.now().UTC().Format(model.TimestampLayout)
	}

	return model.TelemetryUpdate{
		Position:         pos,
		SpeedOverGround:  report.Sog,
		CourseOverGround: report.Cog,
		NavStatus:        report.NavigationalStatus,
		ObservedAt:       observedAt,
	}, true
}

func (p *Processor) done(res Result, outcome Outcome) Result {
	res.Outcome = outcome
	p.outcomes[outcome].Add(1)
	return res
}

func (p *Processor) fail(res Result, err error) Result {
	res.Err = err
	p.logger.Warn("failed to process message", "error", err)
	p.sink.OnError(fmt.Sprintf("message processing error: %v", err))
	return p.done(res, OutcomeDecodeError)
}
