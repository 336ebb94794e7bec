package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var loggerLevelMap = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"fatal":  zapcore.FatalLevel,
	"panic":  zapcore.PanicLevel,
}

type apiLogger struct {
	cfg    *Config
	sugar  *zap.SugaredLogger
}

// NewApiLogger builds a Logger backed by zap, named for the given
// application so every entry carries the service identity.
func NewApiLogger(cfg *Config, appName string) Logger {
	l := &apiLogger{cfg: cfg}
	l.initLogger(appName)
	return l
}

func (l *apiLogger) levelFor() zapcore.Level {
	if l.cfg == nil {
		return zapcore.InfoLevel
	}
	if lvl, ok := loggerLevelMap[l.cfg.Level]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}

func (l *apiLogger) initLogger(appName string) {
	var encoderCfg zapcore.EncoderConfig
	var zapCfg zap.Config
	if l.cfg != nil && l.cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	encoderCfg = zapCfg.EncoderConfig
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if l.cfg != nil && l.cfg.Encoding == "console" {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig = encoderCfg
	zapCfg.Level = zap.NewAtomicLevelAt(l.levelFor())
	zapCfg.DisableCaller = l.cfg != nil && l.cfg.DisableCaller
	zapCfg.DisableStacktrace = l.cfg != nil && l.cfg.DisableStacktrace

	logger, err := zapCfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	if appName != "" {
		logger = logger.Named(appName)
	}
	l.sugar = logger.Sugar()
}

func (l *apiLogger) Debug(args ...interface{})                 { l.sugar.Debug(args...) }
func (l *apiLogger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *apiLogger) Info(args ...interface{})                  { l.sugar.Info(args...) }
func (l *apiLogger) Infof(template string, args ...interface{}) { l.sugar.Infof(template, args...) }
func (l *apiLogger) Warn(args ...interface{})                  { l.sugar.Warn(args...) }
func (l *apiLogger) Warnf(template string, args ...interface{}) { l.sugar.Warnf(template, args...) }
func (l *apiLogger) Error(args ...interface{})                 { l.sugar.Error(args...) }
func (l *apiLogger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }
func (l *apiLogger) Fatal(args ...interface{})                 { l.sugar.Fatal(args...) }
func (l *apiLogger) Fatalf(template string, args ...interface{}) { l.sugar.Fatalf(template, args...) }

func (l *apiLogger) WithFields(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &apiLogger{cfg: l.cfg, sugar: l.sugar.With(args...)}
}
