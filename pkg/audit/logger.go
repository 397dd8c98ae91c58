package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/newtron-network/newtgrade/pkg/util"
)

// DefaultRotation keeps five 10 MiB backups of the audit log.
var DefaultRotation = RotationConfig{MaxSize: 10 << 20, MaxBackups: 5}

// backupStamp suffixes rotated files; it sorts lexically in time order.
const backupStamp = "20060102-150405.000000000"

// Logger defines the interface for audit logging backends
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// Discard is a Logger that drops every event.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(*Event) error               { return nil }
func (discard) Query(Filter) ([]*Event, error) { return []*Event{}, nil }
func (discard) Close() error                   { return nil }

// FileLogger appends events to a JSON-lines file. When the file reaches
// MaxSize it is renamed to <path>.<stamp> and a new one is started; Query
// reads the retained backups and the live file in time order.
type FileLogger struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// RotationConfig configures log file rotation
type RotationConfig struct {
	MaxSize    int64 // Max file size in bytes before rotation
	MaxBackups int   // Max number of old files to retain
}

// NewFileLogger opens (or creates) the audit log at path.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
	return nil
}

// Log appends one event, rotating first if the file is full.
func (l *FileLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full() {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}
	return l.encoder.Encode(event)
}

func (l *FileLogger) full() bool {
	if l.rotation.MaxSize <= 0 {
		return false
	}
	info, err := l.file.Stat()
	return err == nil && info.Size() >= l.rotation.MaxSize
}

// Query returns the events matching filter, oldest first, with the
// filter's offset and limit applied after matching.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := []*Event{}
	for _, path := range append(l.backups(), l.path) {
		var err error
		events, err = scanFile(path, filter, events)
		if err != nil {
			return nil, err
		}
	}
	return filter.page(events), nil
}

// scanFile appends the matching events of one log file to events. A file
// removed by a concurrent rotation reads as empty.
func scanFile(path string, filter Filter, events []*Event) ([]*Event, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return events, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.Warnf("audit: skipping malformed entry at %s:%d: %v", filepath.Base(path), line, err)
			continue
		}
		if filter.Match(&event) {
			events = append(events, &event)
		}
	}
	return events, scanner.Err()
}

// backups lists rotated files, oldest first.
func (l *FileLogger) backups() []string {
	matches, err := filepath.Glob(l.path + ".*")
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// Close closes the log file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+"."+time.Now().Format(backupStamp)); err != nil {
		return err
	}
	if err := l.open(); err != nil {
		return err
	}

	if keep := l.rotation.MaxBackups; keep > 0 {
		old := l.backups()
		for len(old) > keep {
			os.Remove(old[0])
			old = old[1:]
		}
	}
	return nil
}
