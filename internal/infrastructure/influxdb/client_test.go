package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/ember-ui/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.TelemetryConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClient_DisconnectedBehaviour(t *testing.T) {
	// A zero client behaves like a disconnected one: writes are dropped
	// silently and health checks fail fast.
	c := &Client{}

	if c.IsConnected() {
		t.Error("zero client reports connected")
	}

	// Must not panic despite the nil write API.
	c.WriteControlValue(1, "slider", 50)
	c.WritePoint("m", nil, map[string]interface{}{"v": 1.0})
	c.Flush()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}
