// Package viz renders the side-by-side visual comparison between a
// reference recording and a user's attempt: waveform, amplitude envelope
// and energy contour stacked in one figure.
package viz

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"voicetrainer/dsp"
)

var (
	referenceColor = color.RGBA{B: 255, A: 255}
	attemptColor   = color.RGBA{R: 255, A: 255}
)

// EmptySeriesError reports a render attempt against a bundle with an empty
// waveform. The render is aborted; nothing else is affected.
type EmptySeriesError struct {
	Series string
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("cannot render empty %s series", e.Series)
}

// PlotConfig controls figure geometry.
type PlotConfig struct {
	DPI    int
	Width  float64 // inches
	Height float64 // inches
}

// Renderer builds comparison figures. Each Render call is independent and
// has no side effects beyond the returned figure.
type Renderer struct {
	cfg PlotConfig
	log *slog.Logger
}

func NewRenderer(cfg PlotConfig, logger *slog.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: logger}
}

// Figure is a rendered comparison: three stacked panels in plot order
// waveform, envelope, energy.
type Figure struct {
	Panels []*plot.Plot
	cfg    PlotConfig
}

// Render builds the three comparison panels for ref and att. Each series is
// plotted against its own time axis normalized to [0,1], so the comparison
// shows shape rather than absolute timing; energy is additionally divided by
// its own maximum.
func (r *Renderer) Render(ref, att *dsp.Bundle) (*Figure, error) {
	if len(ref.Waveform) == 0 {
		return nil, &EmptySeriesError{Series: "reference waveform"}
	}
	if len(att.Waveform) == 0 {
		return nil, &EmptySeriesError{Series: "attempt waveform"}
	}

	wave, err := comparisonPanel("Waveform", "Amplitude", ref.Waveform, att.Waveform, false)
	if err != nil {
		return nil, err
	}
	env, err := comparisonPanel("Amplitude Envelope", "Envelope", ref.Envelope, att.Envelope, false)
	if err != nil {
		return nil, err
	}
	energy, err := comparisonPanel("Energy Contour", "Normalized Energy", ref.Energy, att.Energy, true)
	if err != nil {
		return nil, err
	}

	r.log.Debug("comparison rendered",
		"ref_samples", len(ref.Waveform), "att_samples", len(att.Waveform))
	return &Figure{Panels: []*plot.Plot{wave, env, energy}, cfg: r.cfg}, nil
}

// SavePNG writes the figure to path at the configured size and DPI.
func (f *Figure) SavePNG(path string) error {
	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(f.cfg.Width)*vg.Inch, vg.Length(f.cfg.Height)*vg.Inch),
		vgimg.UseDPI(f.cfg.DPI),
	)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows: len(f.Panels),
		Cols: 1,
		PadY: vg.Millimeter * 2,
	}
	plots := make([][]*plot.Plot, len(f.Panels))
	for i, p := range f.Panels {
		plots[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(plots, tiles, dc)
	for i, p := range f.Panels {
		p.Draw(canvases[i][0])
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create figure file: %w", err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write figure: %w", err)
	}
	return w.Close()
}

func comparisonPanel(title, ylabel string, ref, att []float64, scaleToMax bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (normalized)"
	p.Y.Label.Text = ylabel
	p.X.Min, p.X.Max = 0, 1
	p.Add(plotter.NewGrid())

	refLine, err := plotter.NewLine(unitTimeXYs(ref, scaleToMax))
	if err != nil {
		return nil, err
	}
	refLine.Color = referenceColor

	attLine, err := plotter.NewLine(unitTimeXYs(att, scaleToMax))
	if err != nil {
		return nil, err
	}
	attLine.Color = attemptColor

	p.Add(refLine, attLine)
	p.Legend.Add("Reference", refLine)
	p.Legend.Add("Your Attempt", attLine)
	p.Legend.Top = true
	return p, nil
}

// unitTimeXYs stretches a series onto a [0,1) time axis, optionally scaling
// values by the series' own maximum.
func unitTimeXYs(series []float64, scaleToMax bool) plotter.XYs {
	scale := 1.0
	if scaleToMax && len(series) > 0 {
		if m := floats.Max(series); m > 0 {
			scale = 1 / m
		}
	}
	n := float64(len(series))
	xys := make(plotter.XYs, len(series))
	for i, v := range series {
		xys[i] = plotter.XY{X: float64(i) / n, Y: v * scale}
	}
	return xys
}
