package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggingPrepare_ConsoleOnly(t *testing.T) {
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("console level none must not enable anything")
	}
}

func TestLoggingPrepare_File(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "dbmd.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: dest, Mode: "overwrite"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer debug.SetCrashOutput(nil, debug.CrashOptions{})
	if _, err := os.Stat(filepath.Join(dir, "dbmd-panic.log")); err != nil {
		t.Errorf("panic log not created: %v", err)
	}
	log.Debug("hidden")
	log.Info("Processing starting", zap.String("source", "publican"))
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "Processing starting") {
		t.Errorf("log file lacks info entry:\n%s", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("normal level must skip debug entries:\n%s", data)
	}
}

func TestConsoleEncoder_ShortensErrors(t *testing.T) {
	enc := newEncoder(zap.NewDevelopmentEncoderConfig())
	err := fmt.Errorf("chapter: %w", errors.New("boom"))
	buf, e := enc.EncodeEntry(zapcore.Entry{Message: "failed"}, []zapcore.Field{zap.Error(err)})
	if e != nil {
		t.Fatalf("EncodeEntry() error = %v", e)
	}
	defer buf.Free()
	if !strings.Contains(buf.String(), "chapter: boom") {
		t.Errorf("encoded entry = %q", buf.String())
	}
	if strings.Contains(buf.String(), "errorVerbose") {
		t.Errorf("console entry must not carry verbose error: %q", buf.String())
	}
}
