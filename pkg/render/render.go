// Package render draws a grid to an image
package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/james-see/gridsynth/pkg/grid"
	"github.com/james-see/gridsynth/pkg/pitch"
)

const (
	SquareSize = 25
	Margin     = 2
	fontSize   = 10

	// MaxPixels caps the image area, 64 MiB of RGBA
	MaxPixels = 4096 * 4096
)

// ErrTooLarge is returned for grids whose image would exceed MaxPixels
var ErrTooLarge = errors.New("grid image too large")

// Size returns the pixel size of a rendered grid
func Size(g *grid.Grid) (w, h int) {
	return g.Width()*(SquareSize+Margin) + Margin, g.Height()*(SquareSize+Margin) + Margin
}

// Render draws painted cells black and empty cells white on a black
// background, with pitch names in the label column
func Render(g *grid.Grid, startOctave int) (image.Image, error) {
	w, h := Size(g)
	if w*h > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, w, h)
	}

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: fontSize}))

	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			x := float64((Margin+SquareSize)*col + Margin)
			y := float64((Margin+SquareSize)*row + Margin)

			dc.DrawRectangle(x, y, SquareSize, SquareSize)
			if g.Cell(row, col) {
				dc.SetRGB(0, 0, 0)
			} else {
				dc.SetRGB(1, 1, 1)
			}
			dc.Fill()

			if col == grid.LabelColumn {
				dc.SetRGB(0, 0, 0)
				dc.DrawString(pitch.RowToName(row, g.Height(), startOctave), x+1, y+fontSize+1)
			}
		}
	}
	return dc.Image(), nil
}

// SavePNG renders a grid to a PNG file
func SavePNG(g *grid.Grid, startOctave int, path string) error {
	img, err := Render(g, startOctave)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}
