package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	if Logger == nil {
		t.Fatal("Expected package logger to be initialized at load time")
	}
	// Must not panic before Initialize is called.
	Logger.Infow("test message", FieldJobID, "j1")
	Named("test").Debugw("named message")
}

func TestInitialize(t *testing.T) {
	original := Logger
	t.Cleanup(func() {
		Logger = original
		JSONOutput = false
	})

	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "Console output", jsonOutput: false},
		{name: "JSON output", jsonOutput: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Initialize(tt.jsonOutput); err != nil {
				t.Fatalf("Initialize(%v) error = %v", tt.jsonOutput, err)
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}
			if !Logger.Desugar().Core().Enabled(zap.InfoLevel) {
				t.Error("Expected info level to be enabled")
			}
		})
	}
}
