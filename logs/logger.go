package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"auto_traider_go/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// fileHook mirrors console logging into a rotated file with its own
// plain formatter.
type fileHook struct {
	formatter logrus.Formatter
	writer    io.Writer
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

var (
	// log is usable before Init so tests and early startup never hit a
	// nil logger; Init replaces it with the fully configured instance.
	log  = logrus.New()
	hook *fileHook
)

// Init configures the package logger: colored console output plus a
// lumberjack-rotated file. Direct calls to the global logrus instance are
// silenced so third-party noise never reaches our outputs.
func Init(cfg *config.LogConfig, logFilePath string) error {
	log = logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:            true,
		FullTimestamp:          true,
		TimestampFormat:        "2006-01-02 15:04:05",
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	log.SetOutput(os.Stdout)

	logrus.SetOutput(io.Discard)
	logrus.StandardLogger().Hooks = make(logrus.LevelHooks)

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	hook = &fileHook{
		writer: &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
		formatter: &logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
	}
	log.AddHook(hook)

	Infof("Logging system initialized.")
	return nil
}

// Close closes the rotated file writer.
func Close() {
	if hook != nil {
		if closer, ok := hook.writer.(io.Closer); ok {
			closer.Close()
		}
	}
}

// Wrapper functions to expose the logger.
func Debug(args ...interface{})                 { log.Debug(args...) }
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
func Info(args ...interface{})                  { log.Info(args...) }
func Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func Warn(args ...interface{})                  { log.Warn(args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Error(args ...interface{})                 { log.Error(args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }
