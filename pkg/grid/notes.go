package grid

import (
	"cmp"
	"slices"

	"github.com/james-see/gridsynth/pkg/pitch"
)

// DefaultDuration is the number of ticks one column spans
const DefaultDuration = 100

// Event is one sounded note. Start and End are in ticks.
type Event struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Pitch int `json:"pitch"`
}

// Compare orders events by start, then end, then pitch
func Compare(a, b Event) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.End, b.End); c != 0 {
		return c
	}
	return cmp.Compare(a.Pitch, b.Pitch)
}

// Extractor converts painted cells into note events
type Extractor struct {
	Duration    int // ticks per column
	StartOctave int // octave of the bottom row
}

// DefaultExtractor returns an extractor with 100 ticks per column and
// octave 3 on the bottom row
func DefaultExtractor() Extractor {
	return Extractor{Duration: DefaultDuration, StartOctave: pitch.DefaultStartOctave}
}

// Extract scans each row left to right and emits one event per painted
// run. The last column never sounds; it only closes runs that reach the
// right edge. The result is sorted with Compare.
func (x Extractor) Extract(g *Grid) []Event {
	events := make([]Event, 0)
	last := g.width - 1

	for row := 0; row < g.height; row++ {
		inNote := false
		start := 0
		for col := LabelColumn + 1; col < g.width; col++ {
			if g.cells[row][col] && col != last {
				if !inNote {
					start = col
					inNote = true
				}
				continue
			}
			if inNote {
				events = append(events, Event{
					Start: (start - 1) * x.Duration,
					End:   (col - 1) * x.Duration,
					Pitch: pitch.RowToNumber(row, g.height, x.StartOctave),
				})
				inNote = false
			}
		}
	}

	slices.SortFunc(events, Compare)
	return events
}

// RowForPitch returns the row that sounds the given MIDI note number
func (x Extractor) RowForPitch(g *Grid, p int) (int, bool) {
	eff := p - 12*(x.StartOctave+1)
	if eff < 0 || eff >= g.height {
		return 0, false
	}
	return g.height - eff - 1, true
}

// Load paints the cells covered by events on top of the current grid.
// Events that have no row or start beyond the last sounding column are
// dropped; events running past it are cut short. Returns the number of
// dropped events.
func (g *Grid) Load(events []Event, x Extractor) int {
	dropped := 0
	last := g.width - 1

	for _, ev := range events {
		row, ok := x.RowForPitch(g, ev.Pitch)
		if !ok || x.Duration <= 0 {
			dropped++
			continue
		}

		from := ev.Start/x.Duration + 1
		to := (ev.End + x.Duration - 1) / x.Duration
		if to <= from-1 {
			to = from
		}
		if from >= last {
			dropped++
			continue
		}
		for col := from; col <= to && col < last; col++ {
			g.Paint(row, col)
		}
	}
	return dropped
}
