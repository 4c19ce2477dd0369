package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the JSON logger and routes the standard library logger through it,
// so plain log.Printf calls come out as JSON lines tagged with the instance.
func New(instance string) (*zap.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncoderConfig.MessageKey = "message"
	cfg.OutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]interface{}{"instance": instance}

	l, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	undo := zap.RedirectStdLog(l)
	return l, func() {
		undo()
		_ = l.Sync()
	}, nil
}
