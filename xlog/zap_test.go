package xlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/rbindex/lib/infra"
)

type testMemOutWriter struct {
	lock sync.Mutex
	data bytes.Buffer
}

func (w *testMemOutWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.data.Write(p)
}

func (w *testMemOutWriter) String() string {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.data.String()
}

func (w *testMemOutWriter) Reset() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.data.Reset()
}

// lines decodes every JSON line written so far.
func (w *testMemOutWriter) lines(t *testing.T) []map[string]any {
	t.Helper()
	res := make([]map[string]any, 0, 8)
	for _, line := range strings.Split(strings.TrimSpace(w.String()), "\n") {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		res = append(res, m)
	}
	return res
}

func newTestMemWriter() *testMemOutWriter {
	w := &testMemOutWriter{}
	putOutWriter(testMemAsOut, zapcore.AddSync(w))
	return w
}

func TestLogLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", LogLevelDebug.String())
	require.Equal(t, "INFO", LogLevelInfo.String())
	require.Equal(t, "WARN", LogLevelWarn.String())
	require.Equal(t, "ERROR", LogLevelError.String())
	require.Equal(t, zapcore.DebugLevel, LogLevelDebug.zapLevel())
	require.Equal(t, zapcore.InfoLevel, LogLevelInfo.zapLevel())
	require.Equal(t, zapcore.WarnLevel, LogLevelWarn.zapLevel())
	require.Equal(t, zapcore.ErrorLevel, LogLevelError.zapLevel())
	require.Equal(t, zapcore.DebugLevel, LogLevel("TRACE").zapLevel())
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv("XLOG_LVL", "warn")
	testcases := []struct {
		in       string
		expected LogLevel
	}{
		{"info", LogLevelInfo},
		{" ERROR ", LogLevelError},
		{"Warn", LogLevelWarn},
		{"debug", LogLevelDebug},
		{"verbose", LogLevelDebug},
		{"", LogLevelWarn},
	}
	for _, tc := range testcases {
		require.Equal(t, tc.expected, ParseLogLevel(tc.in), tc.in)
	}
	require.Equal(t, zapcore.ErrorLevel, getLogLevelOrDefault("error"))
	require.Equal(t, zapcore.DebugLevel, getLogLevelOrDefault(" "))
}

func TestParseLogEncoder(t *testing.T) {
	require.Equal(t, PlainText, ParseLogEncoder("text"))
	require.Equal(t, PlainText, ParseLogEncoder("Console"))
	require.Equal(t, JSON, ParseLogEncoder("json"))
	require.Equal(t, JSON, ParseLogEncoder(""))
}

type testBanner struct{}

func (b testBanner) JSON() string {
	return "{\"app\":\"rbindex\"}"
}

func (b testBanner) PlainText() string {
	return `
 ____  ____ 
|  _ \| __ )
| |_) |  _ \
|  _ <| |_) |
|_| \_\____/
`
}

func TestLoggerPrintBanner(t *testing.T) {
	w := newTestMemWriter()

	logger := NewXLogger(
		WithXLoggerWriter(testMemAsOut),
		WithXLoggerEncoder(JSON),
	)
	logger.Banner(testBanner{})
	require.Equal(t, "{\"banner\":\"{\\\"app\\\":\\\"rbindex\\\"}\"}\n", w.String())
	w.Reset()

	// Printed only once per logger.
	logger.Banner(testBanner{})
	require.Empty(t, w.String())

	logger = NewXLogger(
		WithXLoggerWriter(testMemAsOut),
		WithXLoggerEncoder(PlainText),
	)
	logger.Banner(testBanner{})
	require.Equal(t, testBanner{}.PlainText()+"\n", w.String())
	w.Reset()

	logger.Banner(nil)
	require.Empty(t, w.String())
}

func TestXLogger_JSONOutput(t *testing.T) {
	w := newTestMemWriter()
	logger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriter(testMemAsOut),
		WithXLoggerTimeEncoder(zapcore.ISO8601TimeEncoder),
		WithXLoggerLevelEncoder(zapcore.CapitalLevelEncoder),
	)
	require.Equal(t, "debug", logger.Level())

	logger.Debug("insert", zap.Int64("key", 50))
	logger.Info("remove", zap.Int64("key", 30))
	logger.Warn("not found", zap.Int64("key", 99))
	logger.Error(errors.New("boom"), "validate")
	logger.Logf(zapcore.InfoLevel, "preorder %s", "50-0-p:N")
	require.NoError(t, logger.Sync())

	lines := w.lines(t)
	require.Len(t, lines, 5)
	require.Equal(t, "DEBUG", lines[0]["lvl"])
	require.Equal(t, "insert", lines[0]["msg"])
	require.Equal(t, float64(50), lines[0]["key"])
	require.Contains(t, lines[0]["callAt"], "zap_test.go")
	require.Equal(t, "INFO", lines[1]["lvl"])
	require.Equal(t, "WARN", lines[2]["lvl"])
	require.Equal(t, "ERROR", lines[3]["lvl"])
	require.Equal(t, "boom", lines[3]["error"])
	require.Equal(t, "preorder 50-0-p:N", lines[4]["msg"])
	for _, line := range lines {
		require.NotEmpty(t, line["ts"])
	}
}

func TestXLogger_IncreaseLogLevel(t *testing.T) {
	w := newTestMemWriter()
	logger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerWriter(testMemAsOut),
	)
	logger.IncreaseLogLevel(zapcore.WarnLevel)
	require.Equal(t, "warn", logger.Level())
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	require.Len(t, w.lines(t), 1)

	logger.IncreaseLogLevel(zapcore.DebugLevel)
	logger.Debug("kept")
	require.Len(t, w.lines(t), 2)
}

func TestXLogger_LevelFromEnv(t *testing.T) {
	t.Setenv("XLOG_LVL", "ERROR")
	_ = newTestMemWriter()
	logger := NewXLogger(WithXLoggerWriter(testMemAsOut))
	require.Equal(t, "error", logger.Level())
}

func TestXLogger_ErrorStack(t *testing.T) {
	w := newTestMemWriter()
	logger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerWriter(testMemAsOut),
	)

	err := infra.WrapErrorStackWithMessage(errors.New("key not found"), "remove key 99")
	logger.ErrorStack(err, "remove failed", zap.Int64("key", 99))
	logger.ErrorStackf(err, "remove %d failed", 99)
	logger.ErrorStack(errors.New("plain"), "plain failed")
	logger.ErrorStack(nil, "nil error")

	lines := w.lines(t)
	require.Len(t, lines, 4)
	require.Equal(t, "remove key 99: key not found", lines[0]["error"])
	require.NotEmpty(t, lines[0]["errorStack"])
	require.Equal(t, float64(99), lines[0]["key"])
	require.Equal(t, "remove 99 failed", lines[1]["msg"])
	require.NotEmpty(t, lines[1]["errorStack"])
	require.Equal(t, "plain", lines[2]["error"])
	require.NotContains(t, lines[2], "errorStack")
	require.NotContains(t, lines[3], "error")
}

func TestXLogger_InvalidOptions(t *testing.T) {
	require.Panics(t, func() {
		NewXLogger(WithXLoggerEncoder(_encMax))
	})
	require.Panics(t, func() {
		NewXLogger(WithXLoggerWriter(_writerMax))
	})
	require.NotPanics(t, func() {
		NewXLogger(nil, WithXLoggerLevelEncoder(nil), WithXLoggerTimeEncoder(nil), WithXLoggerStdOutWriter())
	})
}

func TestStdOutSyncer_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	ws := &zapcore.BufferedWriteSyncer{WS: stdOutSyncer{w}, Size: 1024}
	_, err = ws.Write([]byte("buffered\n"))
	require.NoError(t, err)
	require.NoError(t, ws.Sync())
	require.NoError(t, ws.Stop())
	require.NoError(t, w.Close())

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "buffered\n", string(data))
}
