package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// DefaultInterval is used when SamplerConfig.Interval is zero.
const DefaultInterval = 10 * time.Second

// Sink receives each sampled batch.
type Sink interface {
	Send(ctx context.Context, readings []Reading) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, readings []Reading) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, readings []Reading) error {
	return f(ctx, readings)
}

// Logger is the logging surface used by the sampler and sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SamplerConfig holds configuration for the sampler.
type SamplerConfig struct {
	// Shared is the hub to sample.
	Shared *registry.Shared

	// Interval is how often to sample. Default: 10 seconds.
	Interval time.Duration

	// ReadTimeout bounds each device read. Zero leaves the endpoint
	// default in place.
	ReadTimeout time.Duration

	// Sinks receive every batch in order.
	Sinks []Sink
}

// Sampler periodically reads every device in the hub.
type Sampler struct {
	shared      *registry.Shared
	interval    time.Duration
	readTimeout time.Duration
	sinks       []Sink
	now         func() time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewSampler creates a sampler. Call Start to begin sampling.
func NewSampler(cfg SamplerConfig) *Sampler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Sampler{
		shared:      cfg.Shared,
		interval:    interval,
		readTimeout: cfg.ReadTimeout,
		sinks:       cfg.Sinks,
		now:         time.Now,
		done:        make(chan struct{}),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for this sampler.
func (s *Sampler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Sampler) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Start begins periodic sampling. The first sample is taken immediately.
//
// Parameters:
//   - ctx: Context for cancellation (sampling stops when cancelled)
func (s *Sampler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops sampling and waits for an in-flight sample to finish.
// Safe to call multiple times.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Sampler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sampleAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.sampleAndLog(ctx)
		}
	}
}

func (s *Sampler) sampleAndLog(ctx context.Context) {
	readings, err := s.SampleOnce(ctx)
	if err != nil {
		s.log().Error("telemetry sample failed", "error", err)
		return
	}
	s.log().Debug("telemetry sample complete", "readings", len(readings))
}

// SampleOnce reads every device and sends the batch to all sinks.
//
// The hub lock is taken once to list the devices and then once per device,
// so the API and control paths can interleave with a slow sweep. A device
// deleted between listing and reading is left out of the batch. Sinks run
// with no lock held; a sink error is logged and does not stop the rest.
//
// Returns:
//   - []Reading: One reading per device still present, in hub order
//   - error: The context error if ctx ends part way through the walk
func (s *Sampler) SampleOnce(ctx context.Context) ([]Reading, error) {
	targets, err := s.targets()
	if err != nil {
		return nil, err
	}

	readings := make([]Reading, 0, len(targets))
	for _, tg := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, ok, err := s.sample(ctx, tg)
		if err != nil {
			return nil, err
		}
		if ok {
			readings = append(readings, r)
		}
	}

	for _, sink := range s.sinks {
		if err := sink.Send(ctx, readings); err != nil {
			s.log().Warn("telemetry sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
	return readings, nil
}

// target locates one device by name.
type target struct {
	home, room, device string
	kind               registry.Kind
}

// targets lists every device in hub order under one short lock.
func (s *Sampler) targets() ([]target, error) {
	var out []target
	err := s.shared.Do(func(hub *registry.Hub) error {
		for home := range hub.Homes().All() {
			for room := range home.Rooms().All() {
				for d := range room.Devices().All() {
					out = append(out, target{home: home.Name(), room: room.Name(), device: d.Name(), kind: d.Kind()})
				}
			}
		}
		return nil
	})
	return out, err
}

// sample resolves tg and reads it under its own lock. ok is false when the
// device is gone or was replaced by one of another kind.
func (s *Sampler) sample(ctx context.Context, tg target) (r Reading, ok bool, err error) {
	err = s.shared.Do(func(hub *registry.Hub) error {
		home, err := hub.GetHome(tg.home)
		if err != nil {
			return nil
		}
		room, err := home.GetRoom(tg.room)
		if err != nil {
			return nil
		}
		d, err := room.GetDevice(tg.device)
		if err != nil || d.Kind() != tg.kind {
			return nil
		}
		switch dev := d.(type) {
		case *registry.Thermometer:
			r, ok = s.read(ctx, tg.home, tg.room, dev, UnitCelsius, dev.Temperature), true
		case *registry.Socket:
			r, ok = s.read(ctx, tg.home, tg.room, dev, UnitWatts, dev.Power), true
		}
		return nil
	})
	return r, ok, err
}

func (s *Sampler) read(ctx context.Context, home, room string, d registry.Device, unit string,
	fn func(context.Context) (float64, error)) Reading {
	readCtx := ctx
	if s.readTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.readTimeout)
		defer cancel()
	}

	value, err := fn(readCtx)
	r := Reading{
		Home:      home,
		Room:      room,
		Device:    d.Name(),
		Kind:      d.Kind(),
		Value:     value,
		Unit:      unit,
		Err:       err,
		Timestamp: s.now(),
	}
	if err != nil {
		level := s.log().Warn
		if errors.Is(err, context.Canceled) {
			level = s.log().Debug
		}
		level("device read failed",
			"home", home, "room", room, "device", d.Name(), "kind", d.Kind().String(), "error", err)
	}
	return r
}
