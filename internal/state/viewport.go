package state

import (
	"image"
	"math"
)

// FitDisplay returns the on-screen size for an image of the given native
// size. Images that already fit are shown 1:1; larger ones are scaled down
// uniformly so neither side exceeds max.
func FitDisplay(native, max Size) Size {
	if native.Empty() {
		return Size{}
	}
	if max.Empty() || (native.W <= max.W && native.H <= max.H) {
		return native
	}

	// Integer arithmetic so the limiting side lands exactly on the maximum.
	w, h := max.W, native.H*max.W/native.W
	if max.H*native.W < max.W*native.H {
		w, h = native.W*max.H/native.H, max.H
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Size{W: w, H: h}
}

// MapToBuffer converts a position relative to the rendered surface into
// buffer pixels. A zero rendered size is treated as unscaled.
func MapToBuffer(screen Point, rendered, native Size) Point {
	if rendered.Empty() {
		return screen
	}
	return Point{
		X: screen.X * float64(native.W) / float64(rendered.W),
		Y: screen.Y * float64(native.H) / float64(rendered.H),
	}
}

// SegmentBounds is the pixel rectangle a segment can touch, grown by pad
// on every side.
func SegmentBounds(seg Segment, pad float64) image.Rectangle {
	minX, maxX := math.Min(seg.From.X, seg.To.X), math.Max(seg.From.X, seg.To.X)
	minY, maxY := math.Min(seg.From.Y, seg.To.Y), math.Max(seg.From.Y, seg.To.Y)

	return image.Rect(
		int(math.Floor(minX-pad)),
		int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)),
		int(math.Ceil(maxY+pad)),
	)
}
