package tasks

import (
	"context"
	"log"
	"strings"
)

var (
	_ Queue = (*WatermillQueue)(nil)
	_ Queue = (*RiverQueue)(nil)
)

// New builds the queue selected by cfg.Driver.
func New(ctx context.Context, cfg Config, logger *log.Logger, listeners ...Listener) (Queue, error) {
	if strings.EqualFold(cfg.Driver, "river") {
		return NewRiverQueue(ctx, cfg, logger, listeners...)
	}
	return NewWatermillQueue(cfg, logger, listeners...)
}
