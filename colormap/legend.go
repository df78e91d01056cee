package colormap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Legend renders cm as a horizontal strip covering densities [low, high].
// Material bands are drawn as rectangles and labeled when the label fits;
// linear colormaps are drawn as a gradient.
func Legend(cm Colormap, width, height int, low, high float64) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("colormap: invalid legend size %dx%d", width, height)
	}
	if high <= low {
		return nil, fmt.Errorf("colormap: invalid legend range [%v, %v]", low, high)
	}
	if err := cm.Validate(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.Transparent)

	x := func(hu float64) float64 {
		return (hu - low) / (high - low) * float64(width)
	}

	switch cm.Type {
	case TypeMaterials:
		for _, m := range cm.Materials {
			if m.Disabled {
				continue
			}
			dc.SetColor(m.Color.NRGBA())
			dc.DrawRectangle(x(m.From), 0, x(m.To)-x(m.From), float64(height))
			if err := dc.Fill(); err != nil {
				return nil, fmt.Errorf("colormap: fill %s: %w", m.Name, err)
			}
		}
	case TypeLinear:
		brush := gg.NewLinearGradientBrush(x(MinHU), 0, x(MaxHU), 0).
			AddColorStop(0, gg.FromColor(cm.Start.NRGBA())).
			AddColorStop(1, gg.FromColor(cm.End.NRGBA()))
		dc.SetFillBrush(brush)
		dc.DrawRectangle(0, 0, float64(width), float64(height))
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("colormap: fill gradient: %w", err)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, draw.Src)

	if cm.Type == TypeMaterials {
		labelBands(img, cm, x)
	}
	return img, nil
}

func labelBands(img *image.RGBA, cm Colormap, x func(float64) float64) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Face: face}
	baseline := (img.Bounds().Dy() + face.Ascent - face.Descent) / 2
	for _, m := range cm.Materials {
		if m.Disabled {
			continue
		}
		x0, x1 := x(m.From), x(m.To)
		adv := d.MeasureString(m.Name)
		if float64(adv.Ceil()) > x1-x0-2 {
			continue
		}
		d.Src = image.NewUniform(m.Color.contrast())
		left := x0 + (x1-x0-float64(adv.Ceil()))/2
		d.Dot = fixed.P(int(left), baseline)
		d.DrawString(m.Name)
	}
}

// WriteLegendPNG renders the legend and encodes it as PNG.
func WriteLegendPNG(w io.Writer, cm Colormap, width, height int, low, high float64) error {
	img, err := Legend(cm, width, height, low, high)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// NRGBA converts c to a standard library color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// contrast picks black or white text for a band color.
func (c Color) contrast() color.Color {
	luma := 0.299*float64(c[0]) + 0.587*float64(c[1]) + 0.114*float64(c[2])
	if luma > 140 {
		return color.Black
	}
	return color.White
}
