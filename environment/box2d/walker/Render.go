package walker

import (
	"fmt"
	"image/color"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"

	"github.com/samuelfneumann/nonstationary/environment"
)

// Render settings
const (
	ViewportW float64 = 600
	ViewportH float64 = 300

	// Scale is the number of pixels per world unit
	Scale float64 = 100

	// GroundPixel is the pixel row of the ground
	GroundPixel float64 = 250
)

var (
	skyColour    = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	groundColour = color.RGBA{R: 255, G: 166, B: 0, A: 255}
	torsoColour  = color.RGBA{R: 128, G: 102, B: 230, A: 255}
	backColour   = color.RGBA{R: 77, G: 77, B: 128, A: 255}
	frontColour  = color.RGBA{R: 173, G: 216, B: 230, A: 255}
)

// worldToPixel converts world coordinates to pixel coordinates of a
// camera centred horizontally on cameraX
func worldToPixel(v box2d.B2Vec2, cameraX float64) (float64, float64) {
	return ViewportW/2 + Scale*(v.X-cameraX), GroundPixel - Scale*v.Y
}

// Render renders the Walker. RGBArray and Human render an image of the
// Walker with the camera following the torso, ANSI renders a single
// line summary.
func (w *Walker) Render(mode environment.RenderMode) (environment.Frame,
	error) {
	if w.torso == nil {
		return environment.Frame{}, fmt.Errorf("render: walker is closed")
	}

	switch mode {
	case environment.ANSI:
		return environment.Frame{Text: w.summary()}, nil

	case environment.RGBArray, environment.Human:
		return environment.Frame{Image: w.draw().Image()}, nil
	}

	return environment.Frame{}, fmt.Errorf("render: unsupported render "+
		"mode %q", mode)
}

func (w *Walker) summary() string {
	x, y := w.Position()
	obs := w.currentStep.Observation
	return fmt.Sprintf("%v | step %d | x=%.3f y=%.3f angle=%.3f "+
		"vx=%.3f | action %v\n", w.model.Name, w.currentStep.Number, x, y,
		obs.AtVec(1), obs.AtVec(2), w.lastAction.RawVector().Data)
}

func (w *Walker) draw() *gg.Context {
	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyColour)
	dc.Clear()

	cameraX, _ := w.Position()

	// Ground
	dc.SetColor(groundColour)
	dc.SetLineWidth(3.0)
	dc.DrawLine(0, GroundPixel, ViewportW, GroundPixel)
	dc.Stroke()

	// Tick marks so forward motion is visible
	for x := float64(int(cameraX - ViewportW/Scale)); x < cameraX+
		ViewportW/Scale; x++ {
		px, py := worldToPixel(box2d.MakeB2Vec2(x, 0), cameraX)
		dc.DrawLine(px, py, px, py+10)
	}
	dc.Stroke()

	// Back leg behind the torso, front leg in front
	w.drawBody(dc, w.thighs[0], backColour, cameraX)
	w.drawBody(dc, w.shins[0], backColour, cameraX)
	w.drawBody(dc, w.torso, torsoColour, cameraX)
	w.drawBody(dc, w.thighs[1], frontColour, cameraX)
	w.drawBody(dc, w.shins[1], frontColour, cameraX)

	return dc
}

// drawBody fills every polygon fixture of body
func (w *Walker) drawBody(dc *gg.Context, body *box2d.B2Body,
	c color.Color, cameraX float64) {
	for fix := body.GetFixtureList(); fix != nil; fix = fix.M_next {
		shape, ok := fix.M_shape.(*box2d.B2PolygonShape)
		if !ok {
			continue
		}

		dc.ClearPath()
		for i := 0; i < shape.M_count; i++ {
			vertex := box2d.B2TransformVec2Mul(body.M_xf, shape.M_vertices[i])
			dc.LineTo(worldToPixel(vertex, cameraX))
		}
		dc.ClosePath()
		dc.SetColor(c)
		dc.Fill()
	}
}
