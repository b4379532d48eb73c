// Package pitch converts between grid rows, pitch names and MIDI note numbers
package pitch

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultStartOctave is the octave of the bottom row of a grid
const DefaultStartOctave = 3

// Names is the chromatic pitch class table, sharps preferred
var Names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParseError reports a pitch name that could not be converted to a number
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid pitch name %q: %s", e.Name, e.Reason)
}

// RowToName returns the pitch name of a grid row. Row 0 is the top
// (highest) row, so rows are counted from the bottom of the grid.
func RowToName(row, height, startOctave int) string {
	eff := height - row - 1
	return Names[eff%12] + strconv.Itoa(eff/12+startOctave)
}

// RowToNumber is NameToNumber(RowToName(row, height, startOctave)) without
// the string round trip.
func RowToNumber(row, height, startOctave int) int {
	eff := height - row - 1
	return eff%12 + 12*(eff/12+startOctave+1)
}

// NameToNumber parses a name such as "C#3" and returns its MIDI note number
func NameToNumber(name string) (int, error) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, &ParseError{Name: name, Reason: "missing octave"}
	}
	if i > 0 && name[i-1] == '-' {
		i--
	}

	octave, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0, &ParseError{Name: name, Reason: err.Error()}
	}

	class := name[:i]
	for idx, n := range Names {
		if n == class {
			return idx + len(Names)*(octave+1), nil
		}
	}
	return 0, &ParseError{Name: name, Reason: fmt.Sprintf("unknown pitch class %q", class)}
}

// NumberToName returns the sharp-preferred name of a MIDI note number
func NumberToName(n int) string {
	if n < 0 {
		return "?" + strconv.Itoa(n)
	}
	return Names[n%12] + strconv.Itoa(n/12-1)
}

// Label pads a pitch name to a fixed width for grid gutters
func Label(name string, width int) string {
	if len(name) >= width {
		return name[:width]
	}
	return name + strings.Repeat(" ", width-len(name))
}
