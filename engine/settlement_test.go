package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// TestSettle covers wins, losses and the rake edge cases.
func TestSettle(t *testing.T) {
	tests := []struct {
		name        string
		stake       Stake
		winner      Seat
		wantPayout  string
		wantRelease string
	}{
		{"player win with rake", Stake{Amount: dec("1"), RakeRate: dec("0.1")}, SeatPlayer, "1.8", "1"},
		{"bot win forfeits", Stake{Amount: dec("1"), RakeRate: dec("0.1")}, SeatBot, "0", "1"},
		{"zero rake pays double", Stake{Amount: dec("0.01"), RakeRate: dec("0")}, SeatPlayer, "0.02", "0.01"},
		{"fractional stake", Stake{Amount: dec("0.25"), RakeRate: dec("0.05")}, SeatPlayer, "0.475", "0.25"},
		{"zero stake", Stake{Amount: dec("0"), RakeRate: dec("0.1")}, SeatPlayer, "0", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Settle(tc.stake, tc.winner)
			if err != nil {
				t.Fatalf("Settle: %v", err)
			}
			if !got.Payout.Equal(dec(tc.wantPayout)) {
				t.Errorf("Payout = %s, want %s", got.Payout, tc.wantPayout)
			}
			if !got.Release.Equal(dec(tc.wantRelease)) {
				t.Errorf("Release = %s, want %s", got.Release, tc.wantRelease)
			}
			if got.Winner != tc.winner {
				t.Errorf("Winner = %s, want %s", got.Winner, tc.winner)
			}
		})
	}
}

// TestSettleRejectsBadStake verifies Validate is enforced.
func TestSettleRejectsBadStake(t *testing.T) {
	bad := []Stake{
		{Amount: dec("-1"), RakeRate: dec("0")},
		{Amount: dec("1"), RakeRate: dec("1")},
		{Amount: dec("1"), RakeRate: dec("-0.1")},
	}
	for _, s := range bad {
		if _, err := Settle(s, SeatPlayer); err == nil {
			t.Errorf("Settle(%+v) succeeded, want error", s)
		}
	}
	if _, err := Settle(Stake{Amount: dec("1"), RakeRate: dec("0")}, Seat(7)); err == nil {
		t.Error("Settle with unknown seat succeeded")
	}
}

// TestMatchSettle verifies settlement requires a terminal match.
func TestMatchSettle(t *testing.T) {
	stake := Stake{Amount: dec("2"), RakeRate: dec("0.1")}
	m := newDealtMatch(t, 9)
	if _, err := m.Settle(stake); err == nil {
		t.Fatal("settling an in-progress match succeeded")
	}

	m.Status = StatusPlayerWon
	got, err := m.Settle(stake)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !got.Payout.Equal(dec("3.6")) {
		t.Errorf("Payout = %s, want 3.6", got.Payout)
	}

	m.Status = StatusBotWon
	got, err = m.Settle(stake)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !got.Payout.IsZero() || !got.Release.Equal(dec("2")) {
		t.Errorf("bot win settled as %+v", got)
	}
}
