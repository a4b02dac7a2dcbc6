package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Stake is the principal each seat risks and the house rake on a winning
// payout. It is fixed for the lifetime of a match.
type Stake struct {
	Amount   decimal.Decimal
	RakeRate decimal.Decimal
}

// Validate checks Amount >= 0 and 0 <= RakeRate < 1.
func (s Stake) Validate() error {
	if s.Amount.IsNegative() {
		return fmt.Errorf("stake amount %s is negative", s.Amount)
	}
	if s.RakeRate.IsNegative() || s.RakeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("rake rate %s outside [0, 1)", s.RakeRate)
	}
	return nil
}

// Settlement is the balance change produced by a finished match for the
// human seat: Release leaves the locked balance either way, Payout is
// credited to the available balance.
type Settlement struct {
	Winner  Seat
	Payout  decimal.Decimal
	Release decimal.Decimal
}

// Settle converts a winner into a settlement. A player win pays twice the
// stake less rake; a bot win pays nothing and the released stake is
// forfeited. Rake is never taken from a loss.
func Settle(stake Stake, winner Seat) (Settlement, error) {
	if err := stake.Validate(); err != nil {
		return Settlement{}, err
	}
	s := Settlement{Winner: winner, Release: stake.Amount, Payout: decimal.Zero}
	switch winner {
	case SeatPlayer:
		keep := decimal.NewFromInt(1).Sub(stake.RakeRate)
		s.Payout = two.Mul(stake.Amount).Mul(keep)
	case SeatBot:
	default:
		return Settlement{}, fmt.Errorf("unknown winning seat %d", winner)
	}
	return s, nil
}

// Settle settles a terminal match against stake.
func (m *Match) Settle(stake Stake) (Settlement, error) {
	winner, ok := m.Winner()
	if !ok {
		return Settlement{}, fmt.Errorf("cannot settle a match in status %s", m.Status)
	}
	return Settle(stake, winner)
}
