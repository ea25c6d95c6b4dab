package log

import (
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxTraceSize is the trace file size at which FileLogger rotates.
const DefaultMaxTraceSize int64 = 16 << 20

// FileLoggerConfig configures a FileLogger.
type FileLoggerConfig struct {
	// Path of the trace file. The previous generation is kept as Path+".1".
	Path string

	// MaxSize rotates the file once the next record would push it past this
	// many bytes (default: DefaultMaxTraceSize). Negative disables rotation.
	MaxSize int64
}

// FileLogger appends scrubbed protocol events to a CBOR trace file.
// It is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	config  FileLoggerConfig
	file    *os.File
	size    int64
	dropped int
	closed  bool
}

// NewFileLogger opens the trace file at path with default rotation.
func NewFileLogger(path string) (*FileLogger, error) {
	return NewFileLoggerWithConfig(FileLoggerConfig{Path: path})
}

// NewFileLoggerWithConfig opens (or creates) the trace file for appending.
// Parent directories are created as needed. The file is private to the user
// because it records device paths and application ids.
func NewFileLoggerWithConfig(config FileLoggerConfig) (*FileLogger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = DefaultMaxTraceSize
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
		return nil, err
	}

	l := &FileLogger{config: config}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.config.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	l.file = f
	l.size = info.Size()
	return nil
}

// Log appends the event. Records that cannot be encoded or written are
// counted in Dropped; tracing never fails the exchange being traced.
func (l *FileLogger) Log(event Event) {
	data, err := EncodeEvent(event)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.file == nil || err != nil {
		l.dropped++
		return
	}

	if l.config.MaxSize > 0 && l.size > 0 && l.size+int64(len(data)) > l.config.MaxSize {
		if err := l.rotate(); err != nil {
			l.dropped++
			return
		}
	}

	n, err := l.file.Write(data)
	l.size += int64(n)
	if err != nil {
		l.dropped++
	}
}

// rotate moves the current file to Path+".1" and starts an empty one.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		l.file = nil
		return err
	}
	l.file = nil
	if err := os.Rename(l.config.Path, l.config.Path+".1"); err != nil {
		return err
	}
	return l.open()
}

// Dropped returns how many events were not written.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the trace file. Further Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
