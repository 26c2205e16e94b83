package audit

import (
	"context"
)

// queueSize is how many entries may wait for the store before Record
// starts dropping them.
const queueSize = 256

// Logger is the subset of the hub logger the recorder writes to.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type discard struct{}

func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}

// Recorder decouples callers from the store: Record queues, Run writes.
// Record never blocks. A nil *Recorder ignores everything, which is how
// the hub runs without a database.
type Recorder struct {
	store  Store
	source string
	queue  chan Entry
	logger Logger
}

// NewRecorder returns a recorder that tags entries with source ("api",
// "mqtt") and appends them to store.
func NewRecorder(store Store, source string) *Recorder {
	return &Recorder{
		store:  store,
		source: source,
		queue:  make(chan Entry, queueSize),
		logger: discard{},
	}
}

// SetLogger replaces the logger. nil is ignored.
func (r *Recorder) SetLogger(logger Logger) {
	if r == nil || logger == nil {
		return
	}
	r.logger = logger
}

// Store returns the backing store, or nil for a nil recorder.
func (r *Recorder) Store() Store {
	if r == nil {
		return nil
	}
	return r.store
}

// Record queues an entry for entityID. When the queue is full the entry
// is dropped with a warning.
func (r *Recorder) Record(action, entityType, entityID string, details map[string]any) {
	if r == nil {
		return
	}
	e := Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     r.source,
		Details:    details,
	}
	select {
	case r.queue <- e:
	default:
		r.logger.Warn("audit queue full, entry dropped",
			"action", action, "entity_type", entityType, "entity_id", entityID)
	}
}

// Run appends queued entries until ctx is done. Whatever is still queued
// at that point is written before Run returns.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case e := <-r.queue:
			r.append(e)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.queue:
			r.append(e)
		default:
			return
		}
	}
}

func (r *Recorder) append(e Entry) {
	// The request that produced e may already be gone.
	if err := r.store.Append(context.Background(), &e); err != nil {
		r.logger.Error("audit append failed",
			"action", e.Action, "entity_id", e.EntityID, "error", err)
	}
}
