package grid

import (
	"errors"
	"testing"
)

func mustGrid(t *testing.T, width, height int) *Grid {
	t.Helper()
	g, err := New(width, height)
	if err != nil {
		t.Fatalf("New(%d, %d) error = %v", width, height, err)
	}
	return g
}

func TestNew(t *testing.T) {
	g := mustGrid(t, 51, 24)
	if g.Width() != 51 || g.Height() != 24 {
		t.Errorf("size = %dx%d, want 51x24", g.Width(), g.Height())
	}
	if g.Painted() != 0 {
		t.Errorf("Painted() = %d, want 0", g.Painted())
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(1, 4); !errors.Is(err, ErrTooNarrow) {
		t.Errorf("New(1, 4) error = %v, want ErrTooNarrow", err)
	}
	if _, err := New(5, 0); err == nil {
		t.Error("New(5, 0) should fail")
	}
}

func TestPaintErase(t *testing.T) {
	g := mustGrid(t, 5, 3)

	g.Paint(1, 2)
	if !g.Cell(1, 2) {
		t.Error("cell (1,2) should be painted")
	}

	g.Paint(1, 2)
	if g.Painted() != 1 {
		t.Errorf("Painted() = %d after repeated paint, want 1", g.Painted())
	}

	g.Erase(1, 2)
	if g.Cell(1, 2) {
		t.Error("cell (1,2) should be erased")
	}
}

func TestPaintOutOfRangeIgnored(t *testing.T) {
	g := mustGrid(t, 5, 3)

	coords := [][2]int{
		{-1, 1}, {3, 1}, {0, 5}, {0, -1}, {100, 100},
		{0, LabelColumn}, {2, LabelColumn},
	}
	for _, c := range coords {
		g.Paint(c[0], c[1])
	}
	if g.Painted() != 0 {
		t.Errorf("Painted() = %d, want 0", g.Painted())
	}
	if g.Cell(0, LabelColumn) {
		t.Error("label column must never be painted")
	}
}

func TestClear(t *testing.T) {
	g := mustGrid(t, 6, 4)
	for row := 0; row < 4; row++ {
		for col := 0; col < 6; col++ {
			g.Paint(row, col)
		}
	}
	if g.Painted() != 4*5 {
		t.Fatalf("Painted() = %d, want %d", g.Painted(), 4*5)
	}

	g.Clear()
	if g.Painted() != 0 {
		t.Errorf("Painted() = %d after Clear, want 0", g.Painted())
	}
	if events := DefaultExtractor().Extract(g); len(events) != 0 {
		t.Errorf("Extract after Clear = %v, want none", events)
	}
}
