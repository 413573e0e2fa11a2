// Package logger wires logrus with a file hook that persists warn/error
// entries to a bounded ring file, independent of whatever log shipping the
// deploy environment layers on top.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

type FileHook struct {
	logDir     string
	maxEntries int
	mutex      sync.Mutex
}

var (
	fileHook *FileHook
	once     sync.Once
)

// Init configures the logrus level/formatter and attaches the file hook.
// Safe to call more than once; only the first call takes effect.
func Init(level string, maxEntries int) {
	once.Do(func() {
		logLevel, err := logrus.ParseLevel(level)
		if err != nil {
			logLevel = logrus.InfoLevel
		}
		logrus.SetLevel(logLevel)

		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})

		logDir := "logs"
		if err := os.MkdirAll(logDir, 0755); err != nil {
			logrus.WithError(err).Error("failed to create log directory")
			return
		}

		fileHook = &FileHook{
			logDir:     logDir,
			maxEntries: maxEntries,
		}
		logrus.AddHook(fileHook)

		logrus.WithFields(logrus.Fields{
			"level":       level,
			"max_entries": maxEntries,
			"log_dir":     logDir,
		}).Info("logging initialized")
	})
}

// Fire implements logrus.Hook; only warn/error/fatal/panic entries persist.
func (hook *FileHook) Fire(entry *logrus.Entry) error {
	if entry.Level > logrus.WarnLevel {
		return nil
	}

	hook.mutex.Lock()
	defer hook.mutex.Unlock()

	logEntry := LogEntry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Fields:    make(map[string]interface{}),
	}
	for k, v := range entry.Data {
		logEntry.Fields[k] = v
	}

	return hook.writeToFile(logEntry)
}

func (hook *FileHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
	}
}

func (hook *FileHook) writeToFile(entry LogEntry) error {
	filename := filepath.Join(hook.logDir, "errors.log")

	logs := readLogs(filename)
	logs = append(logs, entry)
	if len(logs) > hook.maxEntries {
		logs = logs[len(logs)-hook.maxEntries:]
	}

	return writeLogs(filename, logs)
}

// CleanupLogs re-sorts the ring file newest-first and trims it to
// maxEntries. Nothing in the service calls it on a schedule.
func CleanupLogs() {
	if fileHook == nil {
		return
	}

	fileHook.mutex.Lock()
	defer fileHook.mutex.Unlock()

	filename := filepath.Join(fileHook.logDir, "errors.log")
	logs := readLogs(filename)

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
	if len(logs) > fileHook.maxEntries {
		logs = logs[:fileHook.maxEntries]
	}

	writeLogs(filename, logs)
}

// GetErrorLogs returns up to limit persisted warn/error entries,
// newest first (limit <= 0 returns all). No HTTP route exposes it.
func GetErrorLogs(limit int) ([]LogEntry, error) {
	if fileHook == nil {
		return nil, fmt.Errorf("logger: not initialized")
	}

	filename := filepath.Join(fileHook.logDir, "errors.log")
	logs := readLogs(filename)

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func readLogs(filename string) []LogEntry {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	var logs []LogEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			logs = append(logs, entry)
		}
	}
	return logs
}

func writeLogs(filename string, logs []LogEntry) error {
	var b strings.Builder
	for _, log := range logs {
		if data, err := json.Marshal(log); err == nil {
			b.Write(data)
			b.WriteByte('\n')
		}
	}
	return os.WriteFile(filename, []byte(b.String()), 0644)
}
