package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultLogFile    = "./logs/tokenledger.log"
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 7
)

var (
	mu     sync.RWMutex
	logger = log.New(newRotatingWriter(), "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func newRotatingWriter() io.Writer {
	return &lumberjack.Logger{
		Filename: getLogFilename(),
		MaxSize:  getEnvInt("LOGFILE_MAX_SIZE_MB", defaultMaxSizeMB), // megabytes
		MaxAge:   getEnvInt("LOGFILE_MAX_AGE_DAYS", defaultMaxAgeDays),
	}
}

func getLogFilename() string {
	if logFile := os.Getenv("LOGFILE"); logFile != "" {
		return "./logs/" + logFile
	}
	return defaultLogFile
}

func getEnvInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("invalid value for %s: %q, using %d", name, raw, fallback)
		return fallback
	}
	return v
}

// SetOutput redirects all categories to w, e.g. io.Discard in tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func write(color, level, category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	mu.RLock()
	defer mu.RUnlock()
	logger.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	write(ColorGreen, "INFO", category, content...)
}

func Error(category string, content ...interface{}) {
	write(ColorRed, "ERROR", category, content...)
}

func Warn(category string, content ...interface{}) {
	write(ColorYellow, "WARN", category, content...)
}

func Debug(category string, content ...interface{}) {
	write(ColorBlue, "DEBUG", category, content...)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
