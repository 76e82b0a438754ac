package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
)

func TestMessage(t *testing.T) {
	evt := core.IngestEvent{
		TenantID:     "t1",
		DatasetKind:  "sales",
		ArtifactPath: "t1/sales/2025/08/1754049600000-ventas.csv",
		ManifestPath: "t1/sales/2025/08/1754049600000-ventas.manifest.json",
		ContentHash:  "abc123",
		RowCount:     12,
		Duplicate:    true,
		OccurredAt:   time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	msg, err := Message(evt)
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}

	wantAttrs := map[string]string{
		"event":     EventType,
		"tenant":    "t1",
		"dataset":   "sales",
		"duplicate": "true",
	}
	for k, want := range wantAttrs {
		if got := msg.Attributes[k]; got != want {
			t.Errorf("Attributes[%q] = %q, want %q", k, got, want)
		}
	}

	var body map[string]any
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["artifactPath"] != evt.ArtifactPath {
		t.Errorf("artifactPath = %v, want %v", body["artifactPath"], evt.ArtifactPath)
	}
	if body["rowCount"] != float64(12) {
		t.Errorf("rowCount = %v, want 12", body["rowCount"])
	}
	if body["occurredAt"] != "2025-08-01T12:00:00Z" {
		t.Errorf("occurredAt = %v, want 2025-08-01T12:00:00Z", body["occurredAt"])
	}
}

func TestNew_RequiresProjectAndTopic(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PubSubConfig
	}{
		{"no project", config.PubSubConfig{Topic: "ingest"}},
		{"no topic", config.PubSubConfig{ProjectID: "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.cfg); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}
