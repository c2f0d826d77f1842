package telemetry

import (
	"os"
)

const (
	envObserve   = "BOTSH_OBSERVE_JSON"
	envArtifacts = "BOTSH_ARTIFACTS_DIR"

	defaultArtifactsDir = ".botsh"
)

var observeEnabled bool

func init() {
	// Read once at process start. Mid-run changes only take effect through ObserveEnabled's override.
	observeEnabled = os.Getenv(envObserve) == "1"
}

// ObserveEnabled reports whether JSONL emission is on.
func ObserveEnabled() bool {
	// Preserve the startup value, but allow tests to enable mid-run via env override.
	if os.Getenv(envObserve) == "1" {
		return true
	}
	return observeEnabled
}

// ArtifactsDir is the directory events.jsonl is written to.
func ArtifactsDir() string {
	if v := os.Getenv(envArtifacts); v != "" {
		return v
	}
	return defaultArtifactsDir
}
