package infra

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	line := initPC.line()
	require.Greater(t, line, 0)

	testcases := []struct {
		Frame
		format string
		want   string
	}{
		{initPC, "%s", "err_stack_test.go"},
		{initPC, "%n", "init"},
		{initPC, "%d", fmt.Sprint(line)},
		{initPC, "%v", fmt.Sprintf("err_stack_test.go:%d", line)},
		{Frame(0), "%s", "unknownFile"},
		{Frame(0), "%n", "unknownFunc"},
		{Frame(0), "%d", "0"},
	}

	for _, tc := range testcases {
		frameRes := fmt.Sprintf(tc.format, tc.Frame)
		require.Equal(t, tc.want, frameRes)
	}

	full := fmt.Sprintf("%+s", initPC)
	require.True(t, strings.HasPrefix(full, "github.com/benz9527/rbindex/lib/infra.init\n\t"))
	require.True(t, strings.HasSuffix(full, "err_stack_test.go"))
}

func TestFrameMarshalText(t *testing.T) {
	_bytes, err := initPC.MarshalText()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(_bytes), "github.com/benz9527/rbindex/lib/infra.init "))
	require.True(t, strings.HasSuffix(string(_bytes), fmt.Sprintf("err_stack_test.go:%d", initPC.line())))

	_bytes, err = Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(_bytes))
}

func TestNewErrorStack(t *testing.T) {
	err := NewErrorStack("[rbtree] broken link")
	require.Error(t, err)
	require.Equal(t, "[rbtree] broken link", err.Error())
	require.True(t, IsErrorStack(err))

	es, ok := err.(ErrorStack)
	require.True(t, ok)
	require.NotEmpty(t, es.Frames())
	names := make([]string, 0, len(es.Frames()))
	for _, frame := range es.Frames() {
		names = append(names, fmt.Sprintf("%n", frame))
	}
	require.Contains(t, names, "TestNewErrorStack")
	require.Nil(t, es.Unwrap())
}

func TestWrapErrorStack(t *testing.T) {
	require.Nil(t, WrapErrorStack(nil))
	require.Nil(t, WrapErrorStackWithMessage(nil, "ignored"))

	cause := errors.New("key not found")
	err := WrapErrorStack(cause)
	require.Equal(t, "key not found", err.Error())
	require.ErrorIs(t, err, cause)

	err = WrapErrorStackWithMessage(cause, "[rbtree] remove 42")
	require.Equal(t, "[rbtree] remove 42: key not found", err.Error())
	require.ErrorIs(t, err, cause)
	require.True(t, IsErrorStack(fmt.Errorf("outer: %w", err)))
	require.False(t, IsErrorStack(cause))
}

func TestErrorStackMarshalLogObject(t *testing.T) {
	err := WrapErrorStackWithMessage(errors.New("cause"), "msg")
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, err.(ErrorStack).MarshalLogObject(enc))
	require.Equal(t, "msg: cause", enc.Fields["error"])
	frames, ok := enc.Fields["errorStack"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, frames)
}
