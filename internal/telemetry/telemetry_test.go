package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tableside/internal/config"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown := Setup(context.Background(), config.TelemetryConfig{ServiceName: "tableside"}, nil)
	assert.NoError(t, shutdown(context.Background()))
}
