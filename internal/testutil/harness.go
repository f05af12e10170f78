package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/listmodel/internal/app"
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

// HarnessResult holds the outcomes of building an app for a test.
type HarnessResult struct {
	Dir    string
	Out    *SafeBuffer
	Logs   *SafeBuffer
	Err    error
	App    *app.App
	Config *app.Config
}

// WriteFiles writes files, keyed by path relative to dir, and returns dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// NewApp writes files into a temp dir and builds an app from cfg. Relative
// SchemaPath and SeedPath are resolved against that dir. Set
// LISTMODEL_TEST_LOGS=true to print the log output of every test.
func NewApp(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, t.TempDir(), files)
	if cfg.SchemaPath != "" && !filepath.IsAbs(cfg.SchemaPath) {
		cfg.SchemaPath = filepath.Join(dir, cfg.SchemaPath)
	}
	if cfg.SeedPath != "" && !filepath.IsAbs(cfg.SeedPath) {
		cfg.SeedPath = filepath.Join(dir, cfg.SeedPath)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	res := &HarnessResult{Dir: dir, Out: &SafeBuffer{}, Logs: &SafeBuffer{}}
	t.Cleanup(func() {
		if os.Getenv("LISTMODEL_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.Logs.String())
		}
	})

	config, err := app.NewConfig(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.Config = config

	a, err := app.NewApp(res.Out, res.Logs, config)
	if err != nil {
		res.Err = err
		return res
	}
	t.Cleanup(a.Close)
	res.App = a
	return res
}
