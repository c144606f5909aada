package state

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct{ W, H int }

func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// DrawMode selects how a segment is composited onto the annotation layer.
type DrawMode int

const (
	ModePen DrawMode = iota + 1
	ModeEraser
	ModeGlow
)

func (m DrawMode) String() string {
	switch m {
	case ModePen:
		return "pen"
	case ModeEraser:
		return "eraser"
	case ModeGlow:
		return "glow"
	default:
		return "unknown"
	}
}

// ParseDrawMode accepts the text form or the numeric codes 1, 2 and 3.
// Anything else is Pen.
func ParseDrawMode(s string) DrawMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eraser", "erase", "2":
		return ModeEraser
	case "glow", "3":
		return ModeGlow
	default:
		return ModePen
	}
}

func (m DrawMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *DrawMode) UnmarshalText(b []byte) error {
	*m = ParseDrawMode(string(b))
	return nil
}

// Color is straight (non-premultiplied) 8-bit RGBA.
type Color struct{ R, G, B, A uint8 }

var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
)

func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func ColorOf(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{n.R, n.G, n.B, n.A}
}

var ErrBadColor = errors.New("unrecognized color")

// ParseColor accepts CSS color names and #rgb, #rrggbb or #rrggbbaa.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		if c, ok := colornames.Map[s]; ok {
			return ColorOf(c), nil
		}
		if s == "transparent" {
			return Color{}, nil
		}
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}

	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return Color{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// BrushSettings is the immutable brush state a segment is rendered with.
type BrushSettings struct {
	Mode  DrawMode `json:"mode"`
	Color Color    `json:"color"`
	Width float64  `json:"width"`
}

var (
	ErrBadWidth = errors.New("brush width must be positive")
	ErrBadPoint = errors.New("segment point out of range")
)

// MaxCoord bounds segment coordinates on either side of the origin.
const MaxCoord = 1 << 20

func DefaultBrush() BrushSettings {
	return BrushSettings{Mode: ModePen, Color: White, Width: 3}
}

func (b BrushSettings) Validate() error {
	if !(b.Width > 0) || math.IsInf(b.Width, 1) {
		return fmt.Errorf("%w: %v", ErrBadWidth, b.Width)
	}
	return nil
}

func (b BrushSettings) WithMode(m DrawMode) BrushSettings { b.Mode = m; return b }
func (b BrushSettings) WithColor(c Color) BrushSettings { b.Color = c; return b }
func (b BrushSettings) WithWidth(w float64) BrushSettings { b.Width = w; return b }

// Segment is one line between two consecutive pointer samples, in buffer
// coordinates.
type Segment struct {
	From  Point         `json:"from"`
	To    Point         `json:"to"`
	Brush BrushSettings `json:"brush"`
}

// Validate rejects segments that cannot be rendered: a bad brush or an
// endpoint that is not finite or lies beyond MaxCoord.
func (s Segment) Validate() error {
	for _, p := range []Point{s.From, s.To} {
		if !(math.Abs(p.X) <= MaxCoord && math.Abs(p.Y) <= MaxCoord) {
			return fmt.Errorf("%w: (%v, %v)", ErrBadPoint, p.X, p.Y)
		}
	}
	return s.Brush.Validate()
}
