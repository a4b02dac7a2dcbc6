package engine

import (
	"testing"
)

// TestNewDeckComposition verifies the canonical 108-card multiset.
func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("len(deck) = %d, want %d", len(deck), DeckSize)
	}

	seen := make(map[uint8]bool)
	counts := make(map[string]int)
	for i, c := range deck {
		if c.ID != uint8(i) {
			t.Errorf("deck[%d].ID = %d, want %d", i, c.ID, i)
		}
		if seen[c.ID] {
			t.Errorf("duplicate card id %d", c.ID)
		}
		seen[c.ID] = true
		if c.IsWild() != c.Value.IsWild() {
			t.Errorf("card %d: color wild = %v but value wild = %v", c.ID, c.IsWild(), c.Value.IsWild())
		}
		counts[c.String()]++
	}

	for _, col := range SuitColors {
		if got := counts[col.String()+" 0"]; got != 1 {
			t.Errorf("%s 0 count = %d, want 1", col, got)
		}
		for n := uint8(1); n <= 9; n++ {
			key := col.String() + " " + Numeral(n).String()
			if counts[key] != 2 {
				t.Errorf("%s count = %d, want 2", key, counts[key])
			}
		}
		for _, a := range []ActionType{ActionSkip, ActionReverse, ActionDrawTwo} {
			key := col.String() + " " + Action(a).String()
			if counts[key] != 2 {
				t.Errorf("%s count = %d, want 2", key, counts[key])
			}
		}
	}
	if counts["wild"] != 4 {
		t.Errorf("wild count = %d, want 4", counts["wild"])
	}
	if counts["wild4"] != 4 {
		t.Errorf("wild4 count = %d, want 4", counts["wild4"])
	}
}

// TestBuildDeckIsPermutation verifies shuffling neither adds nor drops ids.
func TestBuildDeckIsPermutation(t *testing.T) {
	canonical := NewDeck()
	for seed := uint64(0); seed < 20; seed++ {
		deck := BuildDeck(seed)
		if len(deck) != DeckSize {
			t.Fatalf("seed %d: len = %d, want %d", seed, len(deck), DeckSize)
		}
		seen := make(map[uint8]bool)
		for _, c := range deck {
			if seen[c.ID] {
				t.Fatalf("seed %d: duplicate id %d", seed, c.ID)
			}
			seen[c.ID] = true
			if canonical[c.ID] != c {
				t.Errorf("seed %d: card %d = %v, canonical %v", seed, c.ID, c, canonical[c.ID])
			}
		}
	}
}

// TestBuildDeckShuffles verifies that the shuffled order differs from canonical.
func TestBuildDeckShuffles(t *testing.T) {
	deck := BuildDeck(42)
	canonical := NewDeck()
	same := 0
	for i := range deck {
		if deck[i].ID == canonical[i].ID {
			same++
		}
	}
	if same == DeckSize {
		t.Error("shuffled deck is in canonical order")
	}
}

// TestRandNUnbiased uses a bound where plain modulo would put half the
// results in the lowest third of the range.
func TestRandNUnbiased(t *testing.T) {
	const n = uint64(3) << 62
	x := newXorshift(99)
	low := 0
	const draws = 30000
	for i := 0; i < draws; i++ {
		v := x.randN(n)
		if v >= n {
			t.Fatalf("randN(%d) = %d, out of range", n, v)
		}
		if v < n/3 {
			low++
		}
	}
	if frac := float64(low) / draws; frac < 0.30 || frac > 0.37 {
		t.Errorf("fraction in lowest third = %.3f, want about 0.333", frac)
	}
}

// TestDealCardCounts verifies hand sizes and piles after Deal.
func TestDealCardCounts(t *testing.T) {
	hr := DefaultHouseRules()
	m := NewMatch(42, hr)
	m.Deal()

	for s := Seat(0); s < NumSeats; s++ {
		if m.HandLen(s) != int(hr.HandSize) {
			t.Errorf("%s HandLen = %d, want %d", s, m.HandLen(s), hr.HandSize)
		}
	}
	if len(m.Discard) != 1 {
		t.Errorf("len(Discard) = %d, want 1", len(m.Discard))
	}
	wantDraw := DeckSize - 2*int(hr.HandSize) - 1
	if len(m.Draw) != wantDraw {
		t.Errorf("len(Draw) = %d, want %d", len(m.Draw), wantDraw)
	}
	if m.CardCount() != DeckSize {
		t.Errorf("CardCount = %d, want %d", m.CardCount(), DeckSize)
	}
	if m.Turn != SeatPlayer {
		t.Errorf("Turn = %s, want player", m.Turn)
	}
	if m.Status != StatusInProgress {
		t.Errorf("Status = %s, want in_progress", m.Status)
	}
}

// TestDealClampsOversizedHands deals more than the deck can hold.
func TestDealClampsOversizedHands(t *testing.T) {
	for _, size := range []uint8{MaxHandSize, MaxHandSize + 1, 60, 255} {
		m := NewMatch(7, HouseRules{HandSize: size})
		m.Deal()
		for s := Seat(0); s < NumSeats; s++ {
			if m.HandLen(s) != MaxHandSize {
				t.Errorf("size %d: %s HandLen = %d, want %d", size, s, m.HandLen(s), MaxHandSize)
			}
		}
		if top, ok := m.DiscardTop(); !ok || top.IsWild() {
			t.Errorf("size %d: DiscardTop = %v, %v", size, top, ok)
		}
		if m.CardCount() != DeckSize {
			t.Errorf("size %d: CardCount = %d, want %d", size, m.CardCount(), DeckSize)
		}
	}
}

// TestDealStartingCardNeverWild verifies the turned-up card and active color.
func TestDealStartingCardNeverWild(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		m := NewMatch(seed, DefaultHouseRules())
		m.Deal()
		top, ok := m.DiscardTop()
		if !ok {
			t.Fatalf("seed %d: no discard top", seed)
		}
		if top.IsWild() {
			t.Fatalf("seed %d: starting card %v is wild", seed, top)
		}
		if m.ActiveColor != top.Color {
			t.Errorf("seed %d: ActiveColor = %s, want %s", seed, m.ActiveColor, top.Color)
		}
	}
}

// TestDealCyclesWildsToBottom rigs wilds on top of the draw pile.
func TestDealCyclesWildsToBottom(t *testing.T) {
	m := NewMatch(1, DefaultHouseRules())
	// Canonical order ends with the 8 wilds, which sit on top of the pile.
	m.dealFromTop()

	top, _ := m.DiscardTop()
	if top.IsWild() {
		t.Fatalf("starting card %v is wild", top)
	}
	if top.ID != 99 {
		t.Errorf("starting card id = %d, want 99 (last non-wild)", top.ID)
	}
	for i := 0; i < 8; i++ {
		if !m.Draw[i].IsWild() {
			t.Errorf("Draw[%d] = %v, want a cycled wild", i, m.Draw[i])
		}
	}
	if m.CardCount() != DeckSize {
		t.Errorf("CardCount = %d, want %d", m.CardCount(), DeckSize)
	}
}

// TestDealDeterministic verifies that the same seed produces identical results.
func TestDealDeterministic(t *testing.T) {
	m1 := NewMatch(99, DefaultHouseRules())
	m1.Deal()
	m2 := NewMatch(99, DefaultHouseRules())
	m2.Deal()

	t1, _ := m1.DiscardTop()
	t2, _ := m2.DiscardTop()
	if t1 != t2 {
		t.Errorf("DiscardTop: %v vs %v", t1, t2)
	}
	for s := Seat(0); s < NumSeats; s++ {
		for i := range m1.Hands[s] {
			if m1.Hands[s][i] != m2.Hands[s][i] {
				t.Errorf("%s card %d: %v vs %v", s, i, m1.Hands[s][i], m2.Hands[s][i])
			}
		}
	}
}

// TestDealDifferentSeeds verifies that different seeds produce different hands.
func TestDealDifferentSeeds(t *testing.T) {
	m1 := NewMatch(1, DefaultHouseRules())
	m1.Deal()
	m2 := NewMatch(2, DefaultHouseRules())
	m2.Deal()

	allSame := true
	for i := range m1.Hands[SeatPlayer] {
		if m1.Hands[SeatPlayer][i] != m2.Hands[SeatPlayer][i] {
			allSame = false
			break
		}
	}
	if allSame {
		t.Error("seeds 1 and 2 produced identical hands (extremely unlikely if RNG is working)")
	}
}

// TestCloneIsDeep verifies mutating a clone leaves the original intact.
func TestCloneIsDeep(t *testing.T) {
	m := NewMatch(5, DefaultHouseRules())
	m.Deal()
	cp := m.Clone()

	cp.Hands[SeatPlayer] = cp.Hands[SeatPlayer][:0]
	cp.Draw[0] = Card{ID: 200}
	cp.Turn = SeatBot

	if m.HandLen(SeatPlayer) != 7 {
		t.Errorf("original hand changed: len = %d", m.HandLen(SeatPlayer))
	}
	if m.Draw[0].ID == 200 {
		t.Error("original draw pile aliased by clone")
	}
	if m.Turn != SeatPlayer {
		t.Error("original turn changed")
	}
}

func TestParseColor(t *testing.T) {
	for _, c := range append(SuitColors[:], ColorWild) {
		got, err := ParseColor(c.String())
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", c.String(), err)
		}
		if got != c {
			t.Errorf("ParseColor(%q) = %v, want %v", c.String(), got, c)
		}
	}
	if got, err := ParseColor(""); err != nil || got != ColorNone {
		t.Errorf("ParseColor(\"\") = %v, %v; want ColorNone, nil", got, err)
	}
	if _, err := ParseColor("purple"); err == nil {
		t.Error("ParseColor(purple) should fail")
	}
}
