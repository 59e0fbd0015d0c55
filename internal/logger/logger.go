package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output string // stdout, file or both
	// FilePath is used when Output is file or both.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	WithCaller bool
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Output:     "stdout",
		FilePath:   "logs/kasirlokal.log",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. stdout may be nil for os.Stdout. The returned
// closer releases the rotating log file, if any.
func New(cfg Config, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("log output %q needs a file path", cfg.Output)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		closer = file
		output = file
		if strings.EqualFold(cfg.Output, "both") {
			output = io.MultiWriter(stdout, file)
		}
	default:
		output = stdout
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler), closer, nil
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Writer adapts a logger to io.Writer for libraries that log through
// printf-style loggers. Each write becomes one record at level.
type Writer struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (w Writer) Printf(format string, args ...any) {
	w.Logger.Log(context.Background(), w.Level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (w Writer) Write(p []byte) (int, error) {
	w.Logger.Log(context.Background(), w.Level, strings.TrimSpace(string(p)))
	return len(p), nil
}
