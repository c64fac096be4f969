// Package audit writes the per-run insert log: one tagged line for every
// record that did not load cleanly.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FilePrefix starts the name of every insert log file.
	FilePrefix = "insert_log_"
	fileSuffix = ".txt"

	TagMissing   = "[MISSING]"
	TagDuplicate = "[DUPLICATE]"
	TagError     = "[ERROR]"
)

// Log is an insert log. Lines carry no timestamp or level so each one starts
// with its tag.
type Log struct {
	logger *zap.Logger
	closer io.Closer
	path   string
}

// Open creates insert_log_YYYYMMDD_HHMMSS.txt in dir, appending if a log for
// the same second already exists.
func Open(fs afero.Fs, dir string, now time.Time) (*Log, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit dir: %w", err)
	}

	path := filepath.Join(dir, FilePrefix+now.Format("20060102_150405")+fileSuffix)
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	l := NewWriter(file)
	l.closer = file
	l.path = path
	return l, nil
}

// NewWriter returns a Log writing to w.
func NewWriter(w io.Writer) *Log {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return &Log{logger: zap.New(core)}
}

// Path returns the file backing the log, or "" for writer-backed logs.
func (l *Log) Path() string {
	return l.path
}

// Missing records a row rejected for missing required fields.
func (l *Log) Missing(row int, fields []string) {
	l.logger.Info(fmt.Sprintf("%s Row %d skipped due to missing values: %s",
		TagMissing, row, strings.Join(fields, ", ")))
}

// Duplicate records a row whose order id already exists.
func (l *Log) Duplicate(row int, orderID string) {
	l.logger.Info(fmt.Sprintf("%s OrderID %s (row %d) skipped.", TagDuplicate, orderID, row))
}

// Error records a row whose insert failed.
func (l *Log) Error(row int, orderID string, reason string) {
	if orderID == "" {
		orderID = "<unknown>"
	}
	l.logger.Info(fmt.Sprintf("%s OrderID %s (row %d) failed: %s", TagError, orderID, row, reason))
}

// Close flushes and closes the log.
func (l *Log) Close() error {
	_ = l.logger.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Cleanup keeps the keep most recently modified insert logs in dir and
// removes the rest. It returns the removed paths. keep must be at least 1 so
// the log of the current run survives.
func Cleanup(fs afero.Fs, dir string, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("invalid keep count %d: must be at least 1", keep)
	}

	matches, err := afero.Glob(fs, filepath.Join(dir, FilePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	type logFile struct {
		path    string
		modTime time.Time
	}
	logs := make([]logFile, 0, len(matches))
	for _, path := range matches {
		info, err := fs.Stat(path)
		if err != nil {
			continue
		}
		logs = append(logs, logFile{path: path, modTime: info.ModTime()})
	}

	if len(logs) <= keep {
		return nil, nil
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].modTime.After(logs[j].modTime)
	})

	var removed []string
	for _, lf := range logs[keep:] {
		if err := fs.Remove(lf.path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", lf.path, err)
		}
		removed = append(removed, lf.path)
	}
	return removed, nil
}
