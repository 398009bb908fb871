package grid

// Direction is a single axis-aligned step
type Direction struct {
	Name string
	DRow int
	DCol int
}

var (
	Up    = Direction{Name: "up", DRow: -1}
	Down  = Direction{Name: "down", DRow: 1}
	Left  = Direction{Name: "left", DCol: -1}
	Right = Direction{Name: "right", DCol: 1}
)

// Directions lists the four moves in expansion order
var Directions = []Direction{Up, Down, Left, Right}

// Step returns the position one move away in direction d
func (p Position) Step(d Direction) Position {
	return Position{Row: p.Row + d.DRow, Col: p.Col + d.DCol}
}

// DirectionBetween returns the direction leading from a to an adjacent b
func DirectionBetween(a, b Position) (Direction, bool) {
	for _, d := range Directions {
		if a.Step(d) == b {
			return d, true
		}
	}
	return Direction{}, false
}

// ParseDirection looks up a direction by name
func ParseDirection(name string) (Direction, bool) {
	for _, d := range Directions {
		if d.Name == name {
			return d, true
		}
	}
	return Direction{}, false
}
