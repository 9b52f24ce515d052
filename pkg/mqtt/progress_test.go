package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// fakeClient records published messages
type fakeClient struct {
	connected  bool
	publishErr error
	topics     []string
	payloads   [][]byte
}

func (c *fakeClient) Connect(ctx context.Context) error { return nil }
func (c *fakeClient) Disconnect()                       {}
func (c *fakeClient) IsConnected() bool                 { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload)
	return nil
}

func TestProgressPublisher_Notify(t *testing.T) {
	client := &fakeClient{connected: true}
	pub := NewProgressPublisher(client, nil)

	pub.Notify(1, 4)
	pub.Notify(2, 4)

	if len(client.payloads) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(client.payloads))
	}
	if want := ProgressTopic(pub.ScanID()); client.topics[0] != want {
		t.Errorf("topic = %s, want %s", client.topics[0], want)
	}

	var event ProgressEvent
	if err := json.Unmarshal(client.payloads[1], &event); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if event.ScanID != pub.ScanID() {
		t.Errorf("event scan id = %s, want %s", event.ScanID, pub.ScanID())
	}
	if event.Completed != 2 || event.Total != 4 {
		t.Errorf("event = %d/%d, want 2/4", event.Completed, event.Total)
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp missing")
	}
}

func TestProgressPublisher_DisconnectedIsNoop(t *testing.T) {
	client := &fakeClient{connected: false}
	pub := NewProgressPublisher(client, nil)

	pub.Notify(1, 2)
	if len(client.payloads) != 0 {
		t.Errorf("expected no publish while disconnected, got %d", len(client.payloads))
	}
}

func TestProgressPublisher_PublishErrorIsSwallowed(t *testing.T) {
	client := &fakeClient{connected: true, publishErr: errors.New("broker gone")}
	pub := NewProgressPublisher(client, nil)

	// Must not panic or propagate
	pub.Notify(1, 2)
}

func TestProgressPublisher_UniqueScanIDs(t *testing.T) {
	client := &fakeClient{connected: true}
	a := NewProgressPublisher(client, nil)
	b := NewProgressPublisher(client, nil)
	if a.ScanID() == b.ScanID() {
		t.Error("expected distinct scan ids")
	}
}

func TestProgressTopic(t *testing.T) {
	topic := ProgressTopic("abc-123")
	if !strings.HasPrefix(topic, TopicProgressBase+"/") {
		t.Errorf("topic %s not under %s", topic, TopicProgressBase)
	}
	if !strings.HasSuffix(topic, "abc-123") {
		t.Errorf("topic %s missing scan id", topic)
	}
}
