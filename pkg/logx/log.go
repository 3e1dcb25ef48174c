package logx

import (
	"errors"
	"log"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is replaced by NewLogger at process start. Until then it discards
// everything, so packages and tests can log without setup.
var Logger = zap.NewNop()

func NewLogger(debug bool) {
	var config zap.Config

	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "time"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := config.Build()
	if err != nil {
		log.Fatalf(`level=error msg="%s" desc="%s"`, err.Error(), "could not create new zap instance")
	}

	Logger = logger.Named("racerelay")
}

// Sync flushes buffered entries, it is called once on shutdown.
func Sync() {
	err := Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		// https://github.com/uber-go/zap/issues/328
		return
	}
	if err != nil {
		log.Printf(`level=error msg="%s" desc="%s"`, err.Error(), "could not sync (flush) logger")
	}
}
