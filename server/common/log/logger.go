package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type level int

const (
	debugLevel level = iota
	infoLevel
	warnLevel
	errorLevel
)

func (lv level) String() string {
	switch lv {
	case debugLevel:
		return "DEBUG"
	case infoLevel:
		return "INFO"
	case warnLevel:
		return "WARN"
	default:
		return "ERROR"
	}
}

func (lv level) color() string {
	switch lv {
	case debugLevel:
		return "\033[90m"
	case infoLevel:
		return "\033[32m"
	case warnLevel:
		return "\033[33m"
	default:
		return "\033[31m"
	}
}

const (
	defaultFilePath  = "./logs/relay_server.log"
	defaultMaxSizeMB = 20
	colorReset       = "\033[0m"
)

type logger struct {
	mu           sync.Mutex
	filePath     string
	maxSizeBytes int64
	jsonFormat   bool
	file         *os.File
}

var global = fromEnv()

func fromEnv() *logger {
	path := strings.TrimSpace(os.Getenv("LOG_FILE_PATH"))
	if path == "" {
		path = defaultFilePath
	}
	sizeMB := defaultMaxSizeMB
	if raw := strings.TrimSpace(os.Getenv("LOG_MAX_SIZE_MB")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			sizeMB = n
		}
	}
	jsonFormat := strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json")
	return &logger{filePath: path, maxSizeBytes: int64(sizeMB) * 1024 * 1024, jsonFormat: jsonFormat}
}

func Debugf(format string, args ...any) { global.logf(debugLevel, format, args...) }
func Infof(format string, args ...any)  { global.logf(infoLevel, format, args...) }
func Warnf(format string, args ...any)  { global.logf(warnLevel, format, args...) }
func Errorf(format string, args ...any) { global.logf(errorLevel, format, args...) }

func (l *logger) logf(lv level, format string, args ...any) {
	line := l.formatLine(time.Now().Format(time.RFC3339Nano), lv, callerName(3), fmt.Sprintf(format, args...))
	fmt.Fprintln(os.Stdout, lv.color()+line+colorReset)
	l.appendToFile(line + "\n")
}

func (l *logger) formatLine(ts string, lv level, caller, message string) string {
	if l.jsonFormat {
		payload := map[string]string{
			"timestamp": ts,
			"level":     lv.String(),
			"caller":    caller,
			"message":   message,
		}
		if b, err := json.Marshal(payload); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%s:%s:%s:%s", ts, lv, caller, message)
}

func (l *logger) appendToFile(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open(); err != nil {
		fmt.Fprintf(os.Stderr, "logger open file error: %v\n", err)
		return
	}
	if err := l.rotateIfNeeded(int64(len(line))); err != nil {
		fmt.Fprintf(os.Stderr, "logger rotate error: %v\n", err)
		return
	}
	if _, err := l.file.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "logger write error: %v\n", err)
	}
}

func (l *logger) open() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.filePath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func (l *logger) rotateIfNeeded(incoming int64) error {
	stat, err := l.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size()+incoming <= l.maxSizeBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}
	rotated := fmt.Sprintf("%s.%s", l.filePath, time.Now().Format("20060102_150405"))
	if err := os.Rename(l.filePath, rotated); err != nil {
		return err
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
