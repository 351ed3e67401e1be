// internal/fees/fees.go

// Package fees splits gross trade value into protocol fee, creator royalty and curve principal.
package fees

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// PercentScale is the denominator for every percentage in the market: 100000 = 100%.
const PercentScale uint64 = 100_000

// ErrInvalidPercent is returned for percentages above PercentScale.
var ErrInvalidPercent = errors.New("percent exceeds scale")

var scale = uint256.NewInt(PercentScale)

// Breakdown is the result of a split. Fee + Royalty + Principal always equals the gross value.
type Breakdown struct {
	Fee       *uint256.Int
	Royalty   *uint256.Int
	Principal *uint256.Int
}

// Total returns Fee + Royalty + Principal.
func (b Breakdown) Total() *uint256.Int {
	total := new(uint256.Int).Add(b.Fee, b.Royalty)
	return total.Add(total, b.Principal)
}

// ValidatePercent checks that p fits the parts-per-100000 scale.
func ValidatePercent(p uint64) error {
	if p > PercentScale {
		return fmt.Errorf("%w: %d > %d", ErrInvalidPercent, p, PercentScale)
	}
	return nil
}

// part returns floor(v * pct / PercentScale) without overflowing the intermediate product.
func part(v *uint256.Int, pct uint64) *uint256.Int {
	out, overflow := new(uint256.Int).MulDivOverflow(v, uint256.NewInt(pct), scale)
	if overflow {
		// unreachable for pct <= PercentScale: the result is never larger than v
		panic("fees: percentage product overflow")
	}
	return out
}

// SplitInbound splits value paid into the market (mint path, burn leg of a swap):
// the protocol fee is taken first, the royalty from what is left.
func SplitInbound(gross *uint256.Int, exchangeFeePct, royaltyPct uint64) Breakdown {
	fee := part(gross, clamp(exchangeFeePct))
	afterFee := new(uint256.Int).Sub(gross, fee)
	royalty := part(afterFee, clamp(royaltyPct))
	return Breakdown{
		Fee:       fee,
		Royalty:   royalty,
		Principal: new(uint256.Int).Sub(afterFee, royalty),
	}
}

// SplitOutbound applies the same formula to raw curve proceeds of a sale. Principal is
// what the seller receives; fee and royalty are retained.
func SplitOutbound(gross *uint256.Int, exchangeFeePct, royaltyPct uint64) Breakdown {
	return SplitInbound(gross, exchangeFeePct, royaltyPct)
}

// SplitRoyaltyOnly is used for the mint leg of a swap: the protocol fee was already taken
// on the burn leg, only the target asset's royalty applies.
func SplitRoyaltyOnly(gross *uint256.Int, royaltyPct uint64) Breakdown {
	return SplitInbound(gross, 0, royaltyPct)
}

func clamp(p uint64) uint64 {
	if p > PercentScale {
		return PercentScale
	}
	return p
}
