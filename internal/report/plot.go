package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot writes a speed profile of s to path. The image format follows the
// file extension (.png, .svg, .pdf). Range increases down the Y axis as it
// does in the water column.
func SavePlot(s *Summary, title, path string) error {
	meanPts := make(plotter.XYs, 0, len(s.Bins))
	lowPts := make(plotter.XYs, 0, len(s.Bins))
	highPts := make(plotter.XYs, 0, len(s.Bins))
	for _, b := range s.Bins {
		if b.Samples == 0 {
			continue
		}
		y := -b.Range
		meanPts = append(meanPts, plotter.XY{X: b.MeanSpeed, Y: y})
		lowPts = append(lowPts, plotter.XY{X: b.MeanSpeed - b.StdDevSpeed, Y: y})
		highPts = append(highPts, plotter.XY{X: b.MeanSpeed + b.StdDevSpeed, Y: y})
	}
	if len(meanPts) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("Speed (%s)", s.UnitLabel)
	p.Y.Label.Text = "Range (m, negative down)"
	p.Add(plotter.NewGrid())

	meanLine, err := plotter.NewLine(meanPts)
	if err != nil {
		return err
	}
	meanLine.Width = vg.Points(1.5)
	meanLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(meanLine)
	p.Legend.Add("mean", meanLine)

	for i, band := range []plotter.XYs{lowPts, highPts} {
		line, err := plotter.NewLine(band)
		if err != nil {
			return err
		}
		line.Width = vg.Points(0.75)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		line.Color = color.RGBA{R: 150, G: 150, B: 150, A: 255}
		p.Add(line)
		if i == 0 {
			p.Legend.Add("±1σ", line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(6*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
