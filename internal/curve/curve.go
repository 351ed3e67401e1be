// =============================
// File: internal/curve/curve.go
// =============================

// Package curve evaluates the stepped bonding curve used by the launch market.
//
// The supply of an asset is divided into len(prices) equal segments; every unit inside a
// segment costs that segment's price. The position on the curve is described by the amount
// still unsold (the market's own token balance), so sold = maxSupply - unsold.
// All arithmetic is integer and truncates toward zero.
package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrCurveExhausted is returned when a trade needs more supply than the curve has left
	// (buy) or more units than were ever sold (sell).
	ErrCurveExhausted = errors.New("curve exhausted")
	// ErrInvalidCurve is returned by Validate for malformed price vectors.
	ErrInvalidCurve = errors.New("invalid curve")
	// ErrInvalidPosition is returned when unsold exceeds maxSupply.
	ErrInvalidPosition = errors.New("unsold amount exceeds max supply")
)

// Validate checks that prices form a usable curve for maxSupply.
// maxSteps <= 0 disables the length cap.
func Validate(prices []*uint256.Int, maxSupply *uint256.Int, maxSteps int) error {
	if len(prices) == 0 {
		return fmt.Errorf("%w: no price steps", ErrInvalidCurve)
	}
	if maxSteps > 0 && len(prices) > maxSteps {
		return fmt.Errorf("%w: %d steps exceeds limit of %d", ErrInvalidCurve, len(prices), maxSteps)
	}
	if maxSupply == nil || maxSupply.IsZero() {
		return fmt.Errorf("%w: zero max supply", ErrInvalidCurve)
	}
	if maxSupply.Lt(uint256.NewInt(uint64(len(prices)))) {
		return fmt.Errorf("%w: max supply %s is smaller than %d steps", ErrInvalidCurve, maxSupply.Dec(), len(prices))
	}
	for i, p := range prices {
		if p == nil || p.IsZero() {
			return fmt.Errorf("%w: step %d has zero price", ErrInvalidCurve, i)
		}
		// each step must be strictly more expensive than the previous one
		if i > 0 && !p.Gt(prices[i-1]) {
			return fmt.Errorf("%w: step %d price %s is not above step %d price %s",
				ErrInvalidCurve, i, p.Dec(), i-1, prices[i-1].Dec())
		}
	}
	return nil
}

// layout holds the derived segment geometry for one evaluation.
type layout struct {
	prices    []*uint256.Int
	maxSupply *uint256.Int
	segment   *uint256.Int
	last      int
}

func newLayout(prices []*uint256.Int, maxSupply *uint256.Int) (*layout, error) {
	if len(prices) == 0 || maxSupply == nil || maxSupply.IsZero() {
		return nil, fmt.Errorf("%w: empty curve or supply", ErrInvalidCurve)
	}
	seg := new(uint256.Int).Div(maxSupply, uint256.NewInt(uint64(len(prices))))
	if seg.IsZero() {
		return nil, fmt.Errorf("%w: segments are empty", ErrInvalidCurve)
	}
	return &layout{prices: prices, maxSupply: maxSupply, segment: seg, last: len(prices) - 1}, nil
}

// index returns the segment holding unit position pos (0-based). The last segment
// absorbs the remainder of maxSupply / len(prices).
func (l *layout) index(pos *uint256.Int) int {
	q := new(uint256.Int).Div(pos, l.segment)
	if !q.IsUint64() || q.Uint64() > uint64(l.last) {
		return l.last
	}
	return int(q.Uint64())
}

func (l *layout) start(i int) *uint256.Int {
	return new(uint256.Int).Mul(l.segment, uint256.NewInt(uint64(i)))
}

func (l *layout) end(i int) *uint256.Int {
	if i == l.last {
		return new(uint256.Int).Set(l.maxSupply)
	}
	return new(uint256.Int).Mul(l.segment, uint256.NewInt(uint64(i+1)))
}

func (l *layout) sold(unsold *uint256.Int) (*uint256.Int, error) {
	if unsold.Gt(l.maxSupply) {
		return nil, ErrInvalidPosition
	}
	return new(uint256.Int).Sub(l.maxSupply, unsold), nil
}

// BuyAmountOut returns how many units principal buys starting from the position described
// by unsold. Whatever part of principal is smaller than one unit of the reached segment
// stays in the reserve.
func BuyAmountOut(principal, unsold, maxSupply *uint256.Int, prices []*uint256.Int) (*uint256.Int, error) {
	l, err := newLayout(prices, maxSupply)
	if err != nil {
		return nil, err
	}
	pos, err := l.sold(unsold)
	if err != nil {
		return nil, err
	}

	out := new(uint256.Int)
	rest := new(uint256.Int).Set(principal)
	for i := l.index(pos); !rest.IsZero(); i++ {
		if i > l.last {
			return nil, fmt.Errorf("%w: %s value left after the last step", ErrCurveExhausted, rest.Dec())
		}
		price := l.prices[i]
		capacity := new(uint256.Int).Sub(l.end(i), pos)
		cost, overflow := new(uint256.Int).MulOverflow(capacity, price)
		if !overflow && !rest.Lt(cost) {
			out.Add(out, capacity)
			rest.Sub(rest, cost)
			pos.Add(pos, capacity)
			continue
		}
		out.Add(out, new(uint256.Int).Div(rest, price))
		break
	}
	return out, nil
}

// SellValueOut returns the value amountIn units are worth when sold back down the curve.
func SellValueOut(amountIn, unsold, maxSupply *uint256.Int, prices []*uint256.Int) (*uint256.Int, error) {
	l, err := newLayout(prices, maxSupply)
	if err != nil {
		return nil, err
	}
	pos, err := l.sold(unsold)
	if err != nil {
		return nil, err
	}
	if amountIn.Gt(pos) {
		return nil, fmt.Errorf("%w: selling %s units but only %s were sold", ErrCurveExhausted, amountIn.Dec(), pos.Dec())
	}

	value := new(uint256.Int)
	rest := new(uint256.Int).Set(amountIn)
	for !rest.IsZero() {
		i := l.index(new(uint256.Int).SubUint64(pos, 1))
		avail := new(uint256.Int).Sub(pos, l.start(i))
		take := rest
		if avail.Lt(rest) {
			take = avail
		}
		part, overflow := new(uint256.Int).MulOverflow(take, l.prices[i])
		if overflow {
			return nil, fmt.Errorf("%w: sell value overflows", ErrCurveExhausted)
		}
		if _, overflow = value.AddOverflow(value, part); overflow {
			return nil, fmt.Errorf("%w: sell value overflows", ErrCurveExhausted)
		}
		pos.Sub(pos, take)
		rest = new(uint256.Int).Sub(rest, take)
	}
	return value, nil
}

// Cost returns the value needed to buy exactly amount units from the current position.
func Cost(amount, unsold, maxSupply *uint256.Int, prices []*uint256.Int) (*uint256.Int, error) {
	if amount.Gt(unsold) {
		return nil, fmt.Errorf("%w: buying %s units but only %s are unsold", ErrCurveExhausted, amount.Dec(), unsold.Dec())
	}
	// buying amount units is the mirror image of selling them from the position after the buy
	after := new(uint256.Int).Sub(unsold, amount)
	return SellValueOut(amount, after, maxSupply, prices)
}

// SpotPrice returns the price of the next unit the curve would sell. Once the curve is sold
// out it reports the last step price.
func SpotPrice(unsold, maxSupply *uint256.Int, prices []*uint256.Int) (*uint256.Int, error) {
	l, err := newLayout(prices, maxSupply)
	if err != nil {
		return nil, err
	}
	pos, err := l.sold(unsold)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(l.prices[l.index(pos)]), nil
}

// Step describes one segment of the curve.
type Step struct {
	Start *uint256.Int
	End   *uint256.Int
	Price *uint256.Int
}

// Steps expands prices into their supply ranges.
func Steps(maxSupply *uint256.Int, prices []*uint256.Int) ([]Step, error) {
	l, err := newLayout(prices, maxSupply)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, len(prices))
	for i := range prices {
		steps[i] = Step{Start: l.start(i), End: l.end(i), Price: new(uint256.Int).Set(prices[i])}
	}
	return steps, nil
}
