package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"drawoverlay/internal/state"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
)

// eraseThreshold is the coverage at which the eraser clears a pixel.
// Pixels below it are left untouched.
const eraseThreshold = 128

// maxGlowSigma caps the halo blur. Wider glow strokes keep a halo of this
// size.
const maxGlowSigma = 64

// renderSegment composites one segment onto dst according to its brush.
func renderSegment(dst *image.RGBA, seg state.Segment) error {
	if err := seg.Validate(); err != nil {
		return err
	}

	// Only pixels inside dst are written. A glow halo also picks up stroke
	// coverage from within its blur reach outside dst.
	var sigma float64
	reach := 0
	if seg.Brush.Mode == state.ModeGlow {
		sigma = glowSigma(seg.Brush.Width)
		reach = int(math.Ceil(3 * sigma))
	}
	limit := dst.Bounds().Inset(-reach)

	w := clampWidth(seg.Brush.Width, seg.From, limit)
	r := state.SegmentBounds(seg, w/2+2+float64(reach)).Intersect(limit)
	if r.Empty() {
		return nil
	}

	mask, err := strokeMask(seg, w, r)
	if err != nil {
		return err
	}

	switch seg.Brush.Mode {
	case state.ModeEraser:
		erase(dst, mask)
	case state.ModeGlow:
		halo := blurMask(mask, sigma)
		paint(dst, halo, seg.Brush.Color)
		paint(dst, mask, seg.Brush.Color)
		paint(dst, mask, state.White)
	default:
		paint(dst, mask, seg.Brush.Color)
	}
	return nil
}

// glowSigma matches a canvas shadowBlur of twice the stroke width.
func glowSigma(width float64) float64 {
	return math.Min(width, maxGlowSigma)
}

// clampWidth limits w so the stroke's half width never exceeds the
// distance from p to the farthest corner of r. Every pixel of r that the
// wider stroke covers is still covered.
func clampWidth(w float64, p state.Point, r image.Rectangle) float64 {
	far := 0.0
	for _, c := range []image.Point{r.Min, {r.Max.X, r.Min.Y}, {r.Min.X, r.Max.Y}, r.Max} {
		far = math.Max(far, math.Hypot(float64(c.X)-p.X, float64(c.Y)-p.Y))
	}
	if half := far + 2; w/2 > half {
		return 2 * half
	}
	return w
}

// strokeMask rasterizes the segment geometry at width w with round caps
// into an alpha mask whose bounds are r in buffer coordinates.
func strokeMask(seg state.Segment, w float64, r image.Rectangle) (*image.Alpha, error) {
	dc := gg.NewContext(r.Dx(), r.Dy())
	defer dc.Close()

	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	dc.SetColor(color.White)

	var err error
	if seg.From == seg.To {
		// A zero-length stroke with round caps is a dot.
		dc.DrawCircle(seg.From.X-ox, seg.From.Y-oy, w/2)
		err = dc.Fill()
	} else {
		dc.SetLineWidth(w)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.MoveTo(seg.From.X-ox, seg.From.Y-oy)
		dc.LineTo(seg.To.X-ox, seg.To.Y-oy)
		err = dc.Stroke()
	}
	if err != nil {
		return nil, err
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, err
	}

	return alphaOf(dc.Image(), r), nil
}

// alphaOf copies the alpha channel of src into a mask positioned at r.
func alphaOf(src image.Image, r image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(r)
	sb := src.Bounds()

	switch s := src.(type) {
	case *image.RGBA:
		for y := 0; y < r.Dy() && y < sb.Dy(); y++ {
			row := s.Pix[y*s.Stride:]
			out := mask.Pix[y*mask.Stride:]
			for x := 0; x < r.Dx() && x < sb.Dx(); x++ {
				out[x] = row[x*4+3]
			}
		}
	case *image.NRGBA:
		for y := 0; y < r.Dy() && y < sb.Dy(); y++ {
			row := s.Pix[y*s.Stride:]
			out := mask.Pix[y*mask.Stride:]
			for x := 0; x < r.Dx() && x < sb.Dx(); x++ {
				out[x] = row[x*4+3]
			}
		}
	default:
		for y := 0; y < r.Dy() && y < sb.Dy(); y++ {
			for x := 0; x < r.Dx() && x < sb.Dx(); x++ {
				_, _, _, a := src.At(sb.Min.X+x, sb.Min.Y+y).RGBA()
				mask.Pix[y*mask.Stride+x] = uint8(a >> 8)
			}
		}
	}
	return mask
}

func blurMask(mask *image.Alpha, sigma float64) *image.Alpha {
	return alphaOf(imaging.Blur(mask, sigma), mask.Rect)
}

// paint composites c through mask onto dst (source-over).
func paint(dst *image.RGBA, mask *image.Alpha, c state.Color) {
	r := mask.Rect.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.DrawMask(dst, r, image.NewUniform(c.NRGBA()), image.Point{}, mask, r.Min, draw.Over)
}

// erase clears dst wherever the mask covers at least half a pixel
// (destination-out).
func erase(dst *image.RGBA, mask *image.Alpha) {
	r := mask.Rect.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.AlphaAt(x, y).A < eraseThreshold {
				continue
			}
			i := dst.PixOffset(x, y)
			copy(dst.Pix[i:i+4], []byte{0, 0, 0, 0})
		}
	}
}
