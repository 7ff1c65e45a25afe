package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// New builds a structured logger that tees every record to stderr and to a
// timestamped log file under dir, one file per run. The returned closer owns
// the file handle.
func New(dir string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("migration_%s.log", time.Now().Format("2006_01_02_15_04_05"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, f), nil)
	return slog.New(handler), f, nil
}

// Discard returns a logger that drops everything; handy default for tests and
// optional components.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
