package internal

import (
	"log"
	"os"
)

// NewLogger returns a logger prefixed with bountyhooks/<component>.
func NewLogger(component string) *log.Logger {
	prefix := "bountyhooks"
	if component != "" {
		prefix = prefix + "/" + component
	}
	return log.New(os.Stdout, prefix+" ", log.LstdFlags|log.Lmicroseconds)
}

// WithRequestID returns a child logger that tags each line with the delivery id.
func WithRequestID(logger *log.Logger, requestID string) *log.Logger {
	if logger == nil {
		logger = log.Default()
	}
	if requestID == "" {
		return logger
	}
	return log.New(logger.Writer(), logger.Prefix()+"request_id="+requestID+" ", logger.Flags())
}
