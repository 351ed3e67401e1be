// internal/market/journal.go
package market

import (
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// journal collects the undo steps of one entry point and the events it will emit once it
// commits. Undo steps run in reverse order.
type journal struct {
	undo   []func() error
	events []events.Event
}

func (j *journal) record(fn func() error) {
	j.undo = append(j.undo, fn)
}

// savePosition restores *p to its current value on rollback.
func (j *journal) savePosition(p *Position) {
	saved := p.clone()
	j.record(func() error {
		*p = saved
		return nil
	})
}

func (j *journal) emit(e events.Event) {
	j.events = append(j.events, e)
}

func (j *journal) rollback(logger *zap.Logger) {
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](); err != nil {
			logger.Error("Rollback step failed", zap.Int("step", i), zap.Error(err))
		}
	}
	j.undo = nil
	j.events = nil
}
