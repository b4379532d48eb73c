package grid

import (
	"testing"

	"github.com/james-see/gridsynth/pkg/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paintRun(g *Grid, row, from, to int) {
	for col := from; col <= to; col++ {
		g.Paint(row, col)
	}
}

func TestExtractEmpty(t *testing.T) {
	g := mustGrid(t, 10, 5)
	events := DefaultExtractor().Extract(g)
	require.NotNil(t, events)
	assert.Empty(t, events)
}

func TestExtractSingleRun(t *testing.T) {
	g := mustGrid(t, 5, 3)
	paintRun(g, 1, 1, 2)

	events := DefaultExtractor().Extract(g)

	want, err := pitch.NameToNumber(pitch.RowToName(1, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, 49, want)
	assert.Equal(t, []Event{{Start: 0, End: 200, Pitch: want}}, events)
}

func TestExtractRunTouchingRightEdge(t *testing.T) {
	g := mustGrid(t, 5, 3)
	paintRun(g, 1, 1, 3)

	events := DefaultExtractor().Extract(g)
	assert.Equal(t, []Event{{Start: 0, End: 300, Pitch: 49}}, events)
}

func TestExtractLastColumnSilent(t *testing.T) {
	g := mustGrid(t, 5, 3)
	g.Paint(0, 4)

	assert.Empty(t, DefaultExtractor().Extract(g))

	paintRun(g, 0, 1, 4)
	assert.Equal(t, []Event{{Start: 0, End: 300, Pitch: 50}}, DefaultExtractor().Extract(g))
}

func TestExtractSingleCell(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		col      int
	}{
		{"first column", 100, 1},
		{"middle column", 100, 4},
		{"custom duration", 37, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGrid(t, 8, 12)
			g.Paint(5, tt.col)

			events := Extractor{Duration: tt.duration, StartOctave: 3}.Extract(g)
			require.Len(t, events, 1)
			assert.Equal(t, tt.duration, events[0].End-events[0].Start)
			assert.Equal(t, (tt.col-1)*tt.duration, events[0].Start)
		})
	}
}

func TestExtractDisjointRuns(t *testing.T) {
	g := mustGrid(t, 6, 3)
	g.Paint(2, 3)
	g.Paint(2, 1)

	events := DefaultExtractor().Extract(g)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Start: 0, End: 100, Pitch: 48}, events[0])
	assert.Equal(t, Event{Start: 200, End: 300, Pitch: 48}, events[1])
	assert.LessOrEqual(t, events[0].End, events[1].Start)
}

func TestExtractOrdering(t *testing.T) {
	g := mustGrid(t, 8, 4)
	paintRun(g, 0, 3, 4) // D#3
	paintRun(g, 3, 1, 5) // C3
	paintRun(g, 2, 1, 2) // C#3
	paintRun(g, 1, 1, 2) // D3

	events := DefaultExtractor().Extract(g)
	assert.Equal(t, []Event{
		{Start: 0, End: 200, Pitch: 49},
		{Start: 0, End: 200, Pitch: 50},
		{Start: 0, End: 500, Pitch: 48},
		{Start: 200, End: 400, Pitch: 51},
	}, events)
}

func TestExtractDeterministic(t *testing.T) {
	g := mustGrid(t, 20, 24)
	for i := 0; i < 24; i++ {
		paintRun(g, i, 1+i%7, 3+i%11)
	}

	x := DefaultExtractor()
	assert.Equal(t, x.Extract(g), x.Extract(g))
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare(Event{0, 100, 60}, Event{100, 200, 40}))
	assert.Negative(t, Compare(Event{0, 100, 60}, Event{0, 200, 40}))
	assert.Negative(t, Compare(Event{0, 100, 40}, Event{0, 100, 60}))
	assert.Zero(t, Compare(Event{0, 100, 40}, Event{0, 100, 40}))
	assert.Positive(t, Compare(Event{10, 0, 0}, Event{0, 100, 40}))
}

func TestLoadRoundTrip(t *testing.T) {
	src := mustGrid(t, 12, 24)
	paintRun(src, 0, 1, 3)
	paintRun(src, 0, 6, 6)
	paintRun(src, 10, 2, 10)
	paintRun(src, 23, 4, 11)

	x := DefaultExtractor()
	events := x.Extract(src)

	dst := mustGrid(t, 12, 24)
	assert.Zero(t, dst.Load(events, x))
	assert.Equal(t, events, x.Extract(dst))
}

func TestLoadDropsUnplaceable(t *testing.T) {
	g := mustGrid(t, 5, 3)
	x := DefaultExtractor()

	dropped := g.Load([]Event{
		{Start: 0, End: 100, Pitch: 10},   // below the grid
		{Start: 0, End: 100, Pitch: 51},   // above the grid
		{Start: 400, End: 500, Pitch: 48}, // past the last sounding column
		{Start: 200, End: 900, Pitch: 49}, // cut at the edge
	}, x)

	assert.Equal(t, 3, dropped)
	assert.Equal(t, []Event{{Start: 200, End: 300, Pitch: 49}}, x.Extract(g))
}
