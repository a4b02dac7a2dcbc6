package engine

// HouseRules holds configurable match settings.
type HouseRules struct {
	HandSize uint8 // cards dealt to each seat; 0 treated as 7, capped at MaxHandSize
	First    Seat  // seat that moves first
}

// DefaultHouseRules returns the standard heads-up settings.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		HandSize: 7,
		First:    SeatPlayer,
	}
}

// MaxHandSize is the largest deal that still leaves a starting card.
const MaxHandSize = (DeckSize - 1) / NumSeats

// handSize returns the effective hand size, treating 0 as 7.
func (r *HouseRules) handSize() int {
	switch {
	case r.HandSize == 0:
		return 7
	case int(r.HandSize) > MaxHandSize:
		return MaxHandSize
	}
	return int(r.HandSize)
}
