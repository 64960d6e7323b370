// Package testutil provides shared helpers for integration-style tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipewright/internal/app"
	"github.com/specialistvlad/pipewright/internal/hclcfg"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of one harness pipeline run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// RunPipelineTest writes the given HCL definition to a temp directory,
// builds an app over it with a local artifact sink, and runs the pipeline
// once with a default background context.
func RunPipelineTest(t *testing.T, definition string) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, definition)
}

// RunPipelineTestWithContext is RunPipelineTest with a caller-provided
// context, for cancellation tests.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, definition string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	pipelinePath := filepath.Join(tmpDir, "pipeline.hcl")
	require.NoError(t, os.WriteFile(pipelinePath, []byte(definition), 0o644))

	appConfig := &app.Config{
		PipelinePath: pipelinePath,
		Format:       "hcl",
		LogLevel:     "debug",
		LogFormat:    "text",
		WorkerCount:  4,
		ArtifactDir:  filepath.Join(tmpDir, "artifacts"),
		CacheDir:     filepath.Join(tmpDir, "cache"),
	}

	logBuffer := &SafeBuffer{}

	testApp, err := app.NewApp(logBuffer, appConfig, hclcfg.NewLoader())
	if err != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: err}
	}

	runErr := testApp.RunOnce(ctx, appConfig)
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
