package jobs

// ──────── Payloads ────────

type BulkEnrichPayload struct {
	Force bool `json:"force,omitempty"`
}

// EventNotifier pushes engine events to connected clients. Implemented by
// the websocket hub; the scheduler never talks to transports directly.
type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, enrich *BulkEnrichHandler) {
	q.RegisterHandler(TaskBulkEnrich, enrich)
}
