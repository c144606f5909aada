package state

import (
	"encoding/json"
	"image"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitDisplay(t *testing.T) {
	max := Size{W: 1080, H: 520}

	tests := []struct {
		name   string
		native Size
		want   Size
	}{
		{"smaller than viewport", Size{640, 480}, Size{640, 480}},
		{"exact fit", Size{1080, 520}, Size{1080, 520}},
		{"wide", Size{3000, 1000}, Size{1080, 360}},
		{"tall", Size{1000, 2600}, Size{200, 520}},
		{"hd", Size{1920, 1080}, Size{924, 520}},
		{"empty", Size{}, Size{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FitDisplay(tt.native, max))
		})
	}
}

func TestFitDisplayPreservesAspect(t *testing.T) {
	max := Size{W: 800, H: 600}
	for w := 100; w <= 5000; w += 373 {
		for h := 100; h <= 5000; h += 419 {
			native := Size{W: w, H: h}
			got := FitDisplay(native, max)
			require.LessOrEqual(t, got.W, max.W)
			require.LessOrEqual(t, got.H, max.H)
			if w <= max.W && h <= max.H {
				require.Equal(t, native, got)
				continue
			}
			// Rounding down loses at most one pixel per side.
			ratio := float64(w) / float64(h)
			assert.InDelta(t, float64(got.H)*ratio, float64(got.W), ratio+1, "native %v got %v", native, got)
		}
	}
}

func TestMapToBuffer(t *testing.T) {
	p := MapToBuffer(Point{X: 50, Y: 25}, Size{W: 100, H: 50}, Size{W: 400, H: 200})
	assert.Equal(t, Point{X: 200, Y: 100}, p)

	p = MapToBuffer(Point{X: 7, Y: 9}, Size{}, Size{W: 400, H: 200})
	assert.Equal(t, Point{X: 7, Y: 9}, p)
}

func TestSegmentBounds(t *testing.T) {
	seg := Segment{From: Point{10.5, 20}, To: Point{4, 30.2}}
	assert.Equal(t, image.Rect(2, 18, 13, 33), SegmentBounds(seg, 2))
}

func TestParseDrawMode(t *testing.T) {
	assert.Equal(t, ModePen, ParseDrawMode("pen"))
	assert.Equal(t, ModePen, ParseDrawMode("1"))
	assert.Equal(t, ModeEraser, ParseDrawMode("Eraser"))
	assert.Equal(t, ModeEraser, ParseDrawMode("2"))
	assert.Equal(t, ModeGlow, ParseDrawMode("glow"))
	assert.Equal(t, ModeGlow, ParseDrawMode("3"))
	assert.Equal(t, ModePen, ParseDrawMode("sparkle"))
	assert.Equal(t, "unknown", DrawMode(0).String())
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"white", Color{255, 255, 255, 255}},
		{"Red", Color{255, 0, 0, 255}},
		{"#0f0", Color{0, 255, 0, 255}},
		{"#123456", Color{0x12, 0x34, 0x56, 0xff}},
		{"#12345680", Color{0x12, 0x34, 0x56, 0x80}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "notacolor", "#12", "#zzzzzz"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrBadColor, bad)
	}
}

func TestSegmentJSON(t *testing.T) {
	seg := Segment{
		From:  Point{1, 2},
		To:    Point{3, 4},
		Brush: BrushSettings{Mode: ModeGlow, Color: Color{255, 0, 0, 255}, Width: 5},
	}
	b, err := json.Marshal(seg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mode":"glow"`)
	assert.Contains(t, string(b), `"color":"#ff0000ff"`)

	var back Segment
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, seg, back)
}

func TestBrushValidate(t *testing.T) {
	assert.NoError(t, DefaultBrush().Validate())
	assert.ErrorIs(t, DefaultBrush().WithWidth(0).Validate(), ErrBadWidth)
}

func TestNewImageName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	a, b := NewImageName(now), NewImageName(now)

	assert.True(t, strings.HasPrefix(a, "drawing-1700000000123-"), a)
	assert.True(t, strings.HasSuffix(a, ".png"), a)
	assert.NotEqual(t, a, b)
}

func TestSequencer(t *testing.T) {
	s := NewSequencer()
	assert.NotEmpty(t, s.Site())
	assert.Equal(t, uint64(1), s.Next())
	s.Observe(10)
	assert.Equal(t, uint64(11), s.Next())
	s.Observe(3)
	assert.Equal(t, uint64(12), s.Next())
}

func TestReadSegments(t *testing.T) {
	in := `{"from":{"x":1,"y":2},"to":{"x":3,"y":4},"brush":{"mode":"pen","color":"#ffffffff","width":3}}

{"from":{"x":3,"y":4},"to":{"x":9,"y":9},"brush":{"mode":"eraser","color":"#000000ff","width":10}}
`
	segs, err := ReadSegments(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, ModeEraser, segs[1].Brush.Mode)
	assert.Equal(t, Point{X: 9, Y: 9}, segs[1].To)

	var sb strings.Builder
	require.NoError(t, WriteSegments(&sb, segs))
	back, err := ReadSegments(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, segs, back)
}

func TestReadSegmentsRejectsBadInput(t *testing.T) {
	_, err := ReadSegments(strings.NewReader(`{"from":{"x":1,"y":2},"to":{"x":3,"y":4},"brush":{"mode":"pen","color":"#fff","width":0}}`))
	assert.ErrorIs(t, err, ErrBadWidth)

	segs, err := ReadSegments(strings.NewReader(`{"from":{"x":1,"y":2},"to":{"x":3,"y":4},"brush":{"mode":"pen","color":"#fff","width":2}} {"from":`))
	assert.Error(t, err)
	assert.Len(t, segs, 1)
}

func TestSegmentValidate(t *testing.T) {
	ok := Segment{From: Point{1, 2}, To: Point{3, 4}, Brush: DefaultBrush()}
	assert.NoError(t, ok.Validate())
	assert.NoError(t, Segment{From: Point{-MaxCoord, MaxCoord}, To: Point{}, Brush: DefaultBrush()}.Validate())

	for _, p := range []Point{{math.NaN(), 0}, {0, math.Inf(-1)}, {MaxCoord + 1, 0}, {0, -1e300}} {
		seg := ok
		seg.To = p
		assert.ErrorIs(t, seg.Validate(), ErrBadPoint, "%v", p)
	}
	for _, w := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, ok.Brush.WithWidth(w).Validate(), ErrBadWidth, "%v", w)
	}
	// Huge but finite widths are clamped at render time, not rejected.
	assert.NoError(t, ok.Brush.WithWidth(1e7).Validate())
}
