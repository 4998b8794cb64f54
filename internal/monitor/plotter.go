package monitor

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tfgraph/internal/tf"
)

var axisColors = []color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

// TrajectoryPlotter renders a frame's translation against sample time.
type TrajectoryPlotter struct {
	Width  vg.Length
	Height vg.Length
}

// NewTrajectoryPlotter returns a plotter with a 10x4 inch canvas.
func NewTrajectoryPlotter() *TrajectoryPlotter {
	return &TrajectoryPlotter{Width: 10 * vg.Inch, Height: 4 * vg.Inch}
}

// trajectory returns x/y/z series with time in seconds since the first
// sample.
func trajectory(f *tf.Frame) [3]plotter.XYs {
	var series [3]plotter.XYs
	samples := f.Samples()
	if len(samples) == 0 {
		return series
	}
	start := samples[0].Stamp
	for i := range series {
		series[i] = make(plotter.XYs, 0, len(samples))
	}
	for _, s := range samples {
		x := s.Stamp.Sub(start).Seconds()
		series[0] = append(series[0], plotter.XY{X: x, Y: s.Pose.Translation.X})
		series[1] = append(series[1], plotter.XY{X: x, Y: s.Pose.Translation.Y})
		series[2] = append(series[2], plotter.XY{X: x, Y: s.Pose.Translation.Z})
	}
	return series
}

// Plot builds the plot for f.
func (tp *TrajectoryPlotter) Plot(f *tf.Frame) (*plot.Plot, error) {
	if f.Len() == 0 {
		return nil, fmt.Errorf("frame %q has no samples", f.ID())
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s translation", f.ID())
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Metres"

	for i, pts := range trajectory(f) {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = axisColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(string("xyz"[i]), line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the plot for f as PNG to w.
func (tp *TrajectoryPlotter) WritePNG(w io.Writer, f *tf.Frame) error {
	p, err := tp.Plot(f)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(tp.Width, tp.Height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes <dir>/<frame>_translation.png and returns the path.
func (tp *TrajectoryPlotter) SavePNG(dir string, f *tf.Frame) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	p, err := tp.Plot(f)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_translation.png", sanitizeFrameID(f.ID())))
	if err := p.Save(tp.Width, tp.Height, path); err != nil {
		return "", fmt.Errorf("save trajectory plot: %w", err)
	}
	return path, nil
}

func sanitizeFrameID(id string) string {
	out := []byte(id)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
