package utils

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with field names used across the solver.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler, or a text handler on
// stderr at Info level if handler is nil.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger writing human-readable text to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// LogSolve reports the outcome of one reduced solve. Non-converged cases are
// reported at Warn level with the offending parameters.
func (l *Logger) LogSolve(ctx context.Context, icase int, re, angle, residual float64, iterations int, converged bool) {
	if !converged {
		l.WarnContext(ctx, "reduced solve did not converge",
			"case", icase,
			"reynolds", re,
			"angle", angle,
			"residual", residual,
			"iterations", iterations,
		)
		return
	}
	l.DebugContext(ctx, "reduced solve converged",
		"case", icase,
		"reynolds", re,
		"angle", angle,
		"residual", residual,
		"iterations", iterations,
	)
}

// LogRelaxation reports stream-function relaxation progress.
func (l *Logger) LogRelaxation(ctx context.Context, icase, iteration int, maxUpdate float64) {
	l.DebugContext(ctx, "stream function relaxation",
		"case", icase,
		"iteration", iteration,
		"dpsi", maxUpdate,
	)
}

// LogRelaxationBudget reports a relaxation loop that ran out of iterations.
func (l *Logger) LogRelaxationBudget(ctx context.Context, icase, iterations int, maxUpdate float64) {
	l.WarnContext(ctx, "stream function relaxation hit iteration budget",
		"case", icase,
		"iterations", iterations,
		"dpsi", maxUpdate,
	)
}

// LogErrors reports relative L2 errors against reference fields.
func (l *Logger) LogErrors(ctx context.Context, label string, errP, errU, errV, errTotal float64) {
	l.InfoContext(ctx, "relative errors",
		"label", label,
		"p", errP,
		"u", errU,
		"v", errV,
		"total", errTotal,
	)
}

// LogTraining reports surrogate training progress.
func (l *Logger) LogTraining(ctx context.Context, mode string, epoch int, loss float64) {
	l.InfoContext(ctx, "surrogate training",
		"mode", mode,
		"epoch", epoch,
		"loss", loss,
	)
}
