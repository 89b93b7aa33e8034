package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"ai_blueprint_backend/internal/config"
)

// Log is replaced by InitLogger; until then it discards everything so
// packages and tests can log without setup.
var Log = zap.NewNop()

var level = zap.NewAtomicLevelAt(zap.InfoLevel)

func InitLogger(cfg *config.Config) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	filename := cfg.Log.File
	if filename == "" {
		filename = "logs/app.log"
	}
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    orDefault(cfg.Log.MaxSizeMB, 100),
		MaxBackups: orDefault(cfg.Log.MaxBackups, 5),
		MaxAge:     orDefault(cfg.Log.MaxAgeDays, 30),
		Compress:   true,
	})

	consoleWriter := zapcore.AddSync(os.Stdout)

	SetLevel(levelName(cfg))

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			fileWriter,
			level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			consoleWriter,
			level,
		),
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// SetLevel changes the level of the running logger. Unknown names are
// ignored.
func SetLevel(name string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		Log.Warn("Ignoring unknown log level", zap.String("level", name))
		return
	}
	level.SetLevel(l)
}

// Level reports the current level name.
func Level() string {
	return level.Level().String()
}

// levelName prefers the configured level; debug mode forces debug.
func levelName(cfg *config.Config) string {
	if cfg.Server.Mode == "debug" {
		return "debug"
	}
	if cfg.Log.Level != "" {
		return cfg.Log.Level
	}
	return "info"
}

// ApplyConfig is used by the config watcher.
func ApplyConfig(cfg *config.Config) {
	SetLevel(levelName(cfg))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
