package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
}

func TestShouldOutput(t *testing.T) {
	assert.False(t, ShouldLogFrames(1))
	assert.True(t, ShouldLogFrames(2))
	assert.False(t, ShouldLogAll(2))
	assert.True(t, ShouldLogAll(3))
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "quiet", LevelName(0))
	assert.Equal(t, "lifecycle", LevelName(1))
	assert.Equal(t, "trace", LevelName(7))
}
