package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Loggers groups the file-backed loggers used across the application.
type Loggers struct {
	Error    *zap.Logger
	Audit    *zap.Logger
	Request  *zap.Logger
	Security *zap.Logger
	System   *zap.Logger
}

func newLogger(filePath string, level zapcore.Level) (*zap.Logger, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ws := zapcore.AddSync(file)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		ws,
		level,
	)
	return zap.New(core), nil
}

// New opens one JSON log file per logger inside dir, creating dir if needed.
func New(dir string) (*Loggers, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	l := &Loggers{}
	files := []struct {
		dst   **zap.Logger
		name  string
		level zapcore.Level
	}{
		{&l.Error, "errors.log", zapcore.ErrorLevel},
		{&l.Audit, "audit.log", zapcore.InfoLevel},
		{&l.Request, "request.log", zapcore.InfoLevel},
		{&l.Security, "security.log", zapcore.WarnLevel},
		{&l.System, "system.log", zapcore.InfoLevel},
	}

	for _, f := range files {
		zl, err := newLogger(filepath.Join(dir, f.name), f.level)
		if err != nil {
			return nil, fmt.Errorf("cannot create %s logger: %w", f.name, err)
		}
		*f.dst = zl
	}
	return l, nil
}

// NewNop returns loggers that discard everything.
func NewNop() *Loggers {
	nop := zap.NewNop()
	return &Loggers{
		Error:    nop,
		Audit:    nop,
		Request:  nop,
		Security: nop,
		System:   nop,
	}
}

func (l *Loggers) Sync() {
	_ = l.Error.Sync()
	_ = l.Audit.Sync()
	_ = l.Request.Sync()
	_ = l.Security.Sync()
	_ = l.System.Sync()
}
