package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pboyd/hijack"
)

func TestLoadConfig(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		c, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, defaultCLIConfig(), c)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hijack.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nengine:\n  max_retries: 3\n  retry_backoff: 50ms\n"), 0o600))

		c, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", c.LogLevel)
		assert.Equal(t, 3, c.Engine.MaxRetries)
		assert.Equal(t, 50*time.Millisecond, c.Engine.RetryBackoff)
		assert.Equal(t, hijack.DefaultConfig().BarrierTimeout, c.Engine.BarrierTimeout)
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hijack.yaml")
		require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_retries: -2\n"), 0o600))

		_, err := loadConfig(path)
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestWriteReports(t *testing.T) {
	reports := []report{
		{Symbol: "main.missing", Reason: "symbol not found"},
		{Symbol: "main.f", Found: true, Entry: "0x401000", Size: 64, Hijackable: true, Reason: "no trampoline: rip relative"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeReports(&buf, reports, false))
	assert.Equal(t, "main.missing: symbol not found\n"+
		"main.f: entry 0x401000, 64 bytes, hijackable=true trampoline=false\n"+
		"  no trampoline: rip relative\n", buf.String())

	buf.Reset()
	require.NoError(t, writeReports(&buf, reports, true))
	var decoded []report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, reports, decoded)
}

func TestInspectAll(t *testing.T) {
	f, err := openBinary("")
	if err != nil {
		t.Skipf("cannot read own symbol table: %v", err)
	}
	defer f.Close()

	reports, err := inspectAll(f, []string{"fmt.Sprintf", "no.such.function"}, false)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "fmt.Sprintf", reports[0].Symbol)
	assert.True(t, reports[0].Found)
	assert.True(t, reports[0].Hijackable)

	assert.Equal(t, "no.such.function", reports[1].Symbol)
	assert.False(t, reports[1].Found)
}

func TestSelftest(t *testing.T) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("selftest patches live code")
	}

	var buf bytes.Buffer
	e := hijack.New(hijack.DefaultConfig())
	require.NoError(t, selftest(context.Background(), e, &buf))

	assert.Contains(t, buf.String(), `enabled  probe(1) = "hijacked 1"`)
	assert.Contains(t, buf.String(), `disabled probe(1) = "original 1"`)
	assert.Equal(t, "original 1", probe(1))
	assert.Empty(t, e.List())
}
