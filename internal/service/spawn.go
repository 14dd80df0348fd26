package service

import (
	"context"

	"github.com/ankushKun/pumpmyclaw-sub003/internal/logging"
)

// Spawn runs fn in a supervised detached goroutine. Panics are recovered and
// errors are logged under the task name; the caller never waits for or hears
// about the outcome. Used for fire-and-forget side effects whose failure must
// not affect the operation that triggered them.
func Spawn(logger *logging.Logger, name string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  name,
					"panic": r,
				}).Error("Detached task panicked")
			}
		}()

		if err := fn(context.Background()); err != nil {
			logger.WithError(err).WithField("task", name).Error("Detached task failed")
		}
	}()
}
