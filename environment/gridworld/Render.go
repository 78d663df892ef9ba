package gridworld

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/logrusorgru/aurora"

	"github.com/samuelfneumann/nonstationary/environment"
)

// CellPixels is the width and height of a single cell in RGB renders
const CellPixels int = 32

var cellColours = map[byte]color.Color{
	Start:  color.RGBA{R: 173, G: 216, B: 230, A: 255},
	Frozen: color.RGBA{R: 220, G: 240, B: 255, A: 255},
	Hole:   color.RGBA{R: 30, G: 30, B: 60, A: 255},
	Goal:   color.RGBA{R: 255, G: 166, B: 0, A: 255},
}

var agentColour = color.RGBA{R: 220, G: 40, B: 40, A: 255}

// Render renders the GridWorld. The Human mode prints the ANSI render
// to standard output.
func (g *GridWorld) Render(mode environment.RenderMode) (environment.Frame,
	error) {
	switch mode {
	case environment.ANSI:
		return environment.Frame{Text: g.ansi()}, nil

	case environment.Human:
		text := g.ansi()
		fmt.Fprint(os.Stdout, text)
		return environment.Frame{Text: text}, nil

	case environment.RGBArray:
		return environment.Frame{Image: g.rgb().Image()}, nil
	}

	return environment.Frame{}, fmt.Errorf("render: unsupported render "+
		"mode %q", mode)
}

// ansi renders the grid as coloured text with the agent's cell
// highlighted, preceded by the last action taken
func (g *GridWorld) ansi() string {
	var b strings.Builder
	if g.lastAction >= 0 {
		fmt.Fprintf(&b, "  (%v)\n", actionNames[g.lastAction])
	}

	row, col := g.Coordinates()
	for i := 0; i < g.state.rows; i++ {
		for j := 0; j < g.state.cols; j++ {
			cell := string(g.state.layout.At(i, j))
			switch {
			case i == row && j == col:
				fmt.Fprint(&b, aurora.BgRed(cell))
			case cell[0] == Hole:
				fmt.Fprint(&b, aurora.Blue(cell))
			case cell[0] == Goal:
				fmt.Fprint(&b, aurora.Green(cell))
			default:
				b.WriteString(cell)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// rgb draws the grid with one CellPixels square per cell and the agent
// as a circle
func (g *GridWorld) rgb() *gg.Context {
	size := float64(CellPixels)
	dc := gg.NewContext(g.state.cols*CellPixels, g.state.rows*CellPixels)

	for i := 0; i < g.state.rows; i++ {
		for j := 0; j < g.state.cols; j++ {
			dc.DrawRectangle(float64(j)*size, float64(i)*size, size, size)
			dc.SetColor(cellColours[g.state.layout.At(i, j)])
			dc.FillPreserve()
			dc.SetColor(color.Black)
			dc.SetLineWidth(1.0)
			dc.Stroke()
		}
	}

	row, col := g.Coordinates()
	dc.DrawCircle((float64(col)+0.5)*size, (float64(row)+0.5)*size, size/3)
	dc.SetColor(agentColour)
	dc.Fill()

	return dc
}
