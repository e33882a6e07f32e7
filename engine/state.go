package engine

import "fmt"

// State is the engine lifecycle state.
type State int32

const (
	Unprepared State = iota
	Prepared
	Processing
	Released
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Unprepared:
		return "unprepared"
	case Prepared:
		return "prepared"
	case Processing:
		return "processing"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
