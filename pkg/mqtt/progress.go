package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ProgressEvent is the payload published after each completed query window
type ProgressEvent struct {
	ScanID    string    `json:"scanId"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressPublisher emits advisory scan progress events over MQTT. Publish
// failures are logged and swallowed: progress reporting never affects the
// fetch itself.
type ProgressPublisher struct {
	client Client
	scanID string
	topic  string
	logger *slog.Logger
}

// NewProgressPublisher creates a publisher for a new scan, identified by a
// fresh UUID
func NewProgressPublisher(client Client, logger *slog.Logger) *ProgressPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &ProgressPublisher{
		client: client,
		scanID: id,
		topic:  ProgressTopic(id),
		logger: logger,
	}
}

// ScanID returns the scan identifier carried on every event
func (p *ProgressPublisher) ScanID() string {
	return p.scanID
}

// Notify publishes a (completed, total) progress event. Safe to pass as a
// telemetry.ProgressFunc.
func (p *ProgressPublisher) Notify(completed, total int) {
	if p.client == nil || !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(ProgressEvent{
		ScanID:    p.scanID,
		Completed: completed,
		Total:     total,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := p.client.Publish(p.topic, 0, false, payload); err != nil {
		p.logger.Debug("Progress publish failed", "scan_id", p.scanID, "error", err)
	}
}
