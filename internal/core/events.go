package core

// EventKind names a progress event emitted during ingestion and matching.
type EventKind string

const (
	EventEmbedded EventKind = "embedded"
	EventIndexed  EventKind = "indexed"
	EventMatched  EventKind = "matched"
	EventSkipped  EventKind = "skipped"
	EventCleared  EventKind = "cleared"
)

// Event is delivered synchronously to the progress callback while the
// matcher works through a batch. BatchID correlates events of one run.
type Event struct {
	Kind       EventKind
	BatchID    string
	DocumentID int64
	JobID      int64
	EngineerID int64
	Score      float64
	Grade      Grade
	Reason     string
}

// ProgressFunc receives matcher progress. Implementations must be fast and
// must not block; the matcher calls them inline.
type ProgressFunc func(Event)

func (m *Matcher) emit(ev Event) {
	if m.onProgress != nil {
		m.onProgress(ev)
	}
}
