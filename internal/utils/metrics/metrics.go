// internal/utils/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/market"
)

// Operation outcomes used as the status label.
const (
	StatusSuccess   = "success"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ObserveOperation записывает результат и длительность операции рынка (market.Observer).
func (c *Collector) ObserveOperation(op string, duration time.Duration, err error) {
	c.operations.WithLabelValues(op, status(err)).Inc()
	c.durations.WithLabelValues(op).Observe(duration.Seconds())
}

func status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	case market.IsRejected(err):
		return StatusRejected
	default:
		return StatusFailed
	}
}

// HandleEvent обновляет метрики по событиям рынка; подписывается на шину событий.
func (c *Collector) HandleEvent(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.TradeEvent:
		side := "buy"
		traded := e.ValueIn
		if e.Type() == events.TokensBurned {
			side = "sell"
		}
		c.volume.WithLabelValues(side).Add(Units(traded))
		c.income.WithLabelValues("protocol").Add(Units(e.Fee))
		c.income.WithLabelValues("royalty").Add(Units(e.Royalty))
		c.reserves.WithLabelValues(e.Token.Hex()).Set(Units(e.Balance))
	case *events.GraduatedEvent:
		c.graduations.Inc()
		c.reserves.WithLabelValues(e.Token.Hex()).Set(0)
	}
	return nil
}

// Units converts a wei-scale amount into whole units for gauges.
func Units(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v.ToBig(), -18).Float64()
	return f
}
