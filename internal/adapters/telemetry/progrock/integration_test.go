package progrock_test

import (
	"context"
	"testing"

	"go.trai.ch/knit/internal/adapters/telemetry/progrock"
	"go.trai.ch/knit/internal/core/domain"
)

func TestRecorder_Integration(t *testing.T) {
	recorder := progrock.New()

	ctx := context.Background()
	_, vertex := recorder.Record(ctx, "resolve app.kt:3")

	if _, err := vertex.Stdout().Write([]byte("Standard Output\n")); err != nil {
		t.Errorf("failed to write to stdout: %v", err)
	}
	if _, err := vertex.Stderr().Write([]byte("Standard Error\n")); err != nil {
		t.Errorf("failed to write to stderr: %v", err)
	}

	vertex.Log(domain.LogLevelDebug, "debug msg")
	vertex.Complete(nil)

	if err := recorder.Close(); err != nil {
		t.Errorf("failed to close recorder: %v", err)
	}
}
