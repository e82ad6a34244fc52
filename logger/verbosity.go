package logger

import "go.uber.org/zap/zapcore"

// Verbosity ladder for the -v flag. Each step enables an additional
// diagnostic channel on top of the previous ones.
//
//	0: warnings and errors only
//	1 (-v): info — sync lifecycle, snapshot generations
//	2 (-vv): debug — per-frame stream handling, layout passes
//	3 (-vvv): trace — full frame payloads and position dumps
const (
	OutputQuiet        = 0
	OutputLifecycle    = 1
	OutputStreamFrames = 2
	OutputDataDump     = 3
)

// ShouldOutput reports whether the given verbosity enables a channel.
func ShouldOutput(verbosity, channel int) bool {
	return verbosity >= channel
}

// ShouldLogFrames reports whether per-frame stream logging is enabled.
func ShouldLogFrames(verbosity int) bool {
	return ShouldOutput(verbosity, OutputStreamFrames)
}

// ShouldLogAll reports whether full payload dumps are enabled.
func ShouldLogAll(verbosity int) bool {
	return ShouldOutput(verbosity, OutputDataDump)
}

// VerbosityToLevel maps the -v count to a zap level.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelName returns a human-readable name for a verbosity level.
func LevelName(verbosity int) string {
	switch {
	case verbosity <= 0:
		return "quiet"
	case verbosity == 1:
		return "lifecycle"
	case verbosity == 2:
		return "frames"
	default:
		return "trace"
	}
}
