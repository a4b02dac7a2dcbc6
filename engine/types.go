package engine

import "fmt"

// Color is the suit of a card, or ColorWild for wild and wild-draw-four cards.
type Color uint8

const (
	ColorRed    Color = 0
	ColorYellow Color = 1
	ColorGreen  Color = 2
	ColorBlue   Color = 3
	ColorWild   Color = 4

	// ColorNone marks an absent color choice (non-wild plays).
	ColorNone Color = 0xFF
)

// SuitColors lists the four colors a wild may be declared as.
var SuitColors = [4]Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// IsSuit reports whether c is one of the four suit colors.
func (c Color) IsSuit() bool { return c <= ColorBlue }

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorYellow:
		return "yellow"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorWild:
		return "wild"
	case ColorNone:
		return ""
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// ParseColor maps a color name to its Color. The empty string maps to ColorNone.
func ParseColor(s string) (Color, error) {
	switch s {
	case "red":
		return ColorRed, nil
	case "yellow":
		return ColorYellow, nil
	case "green":
		return ColorGreen, nil
	case "blue":
		return ColorBlue, nil
	case "wild":
		return ColorWild, nil
	case "":
		return ColorNone, nil
	}
	return ColorNone, fmt.Errorf("unknown color %q", s)
}

// ValueKind tags a Value as a numeral or an action.
type ValueKind uint8

const (
	KindNumeral ValueKind = 0
	KindAction  ValueKind = 1
)

// ActionType enumerates the non-numeral card faces.
type ActionType uint8

const (
	ActionSkip     ActionType = 0
	ActionReverse  ActionType = 1
	ActionDrawTwo  ActionType = 2
	ActionWild     ActionType = 3
	ActionWildFour ActionType = 4
)

var actionNames = [...]string{"skip", "reverse", "draw2", "wild", "wild4"}

// Value is the face of a card: either Numeral(0..9) or one of the actions.
type Value struct {
	Kind   ValueKind
	Number uint8      // valid when Kind == KindNumeral
	Action ActionType // valid when Kind == KindAction
}

// Numeral returns the numeral face n (0..9).
func Numeral(n uint8) Value { return Value{Kind: KindNumeral, Number: n} }

// Action returns the action face a.
func Action(a ActionType) Value { return Value{Kind: KindAction, Action: a} }

// Equal reports a value match: same number, or the same action.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindNumeral {
		return v.Number == o.Number
	}
	return v.Action == o.Action
}

// IsWild reports whether v is a wild or wild-draw-four face.
func (v Value) IsWild() bool {
	return v.Kind == KindAction && (v.Action == ActionWild || v.Action == ActionWildFour)
}

// Is reports whether v is the action a.
func (v Value) Is(a ActionType) bool { return v.Kind == KindAction && v.Action == a }

func (v Value) String() string {
	if v.Kind == KindNumeral {
		return fmt.Sprintf("%d", v.Number)
	}
	if int(v.Action) < len(actionNames) {
		return actionNames[v.Action]
	}
	return fmt.Sprintf("action(%d)", v.Action)
}

// Card is an immutable UNO card. ID is unique within a deck (0..DeckSize-1).
type Card struct {
	ID    uint8
	Color Color
	Value Value
}

// IsWild reports whether the card is a wild or wild-draw-four.
func (c Card) IsWild() bool { return c.Color == ColorWild }

func (c Card) String() string {
	if c.IsWild() {
		return c.Value.String()
	}
	return c.Color.String() + " " + c.Value.String()
}

// Seat identifies one side of the two-seat table.
type Seat uint8

const (
	SeatPlayer Seat = 0
	SeatBot    Seat = 1
)

// NumSeats is fixed: the engine only plays heads-up.
const NumSeats = 2

// Other returns the opposing seat.
func (s Seat) Other() Seat { return 1 - s }

func (s Seat) String() string {
	if s == SeatPlayer {
		return "player"
	}
	return "bot"
}

// Status is the lifecycle state of a match.
type Status uint8

const (
	StatusInProgress Status = 0
	StatusPlayerWon  Status = 1
	StatusBotWon     Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusPlayerWon:
		return "player_won"
	case StatusBotWon:
		return "bot_won"
	}
	return "in_progress"
}

// wonBy returns the terminal status for seat s winning.
func wonBy(s Seat) Status {
	if s == SeatPlayer {
		return StatusPlayerWon
	}
	return StatusBotWon
}
