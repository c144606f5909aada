// Package surface holds the drawing surface: a background raster, a
// transparent annotation raster of the same native size, pointer handling
// that turns input into stroke segments, and the flattened PNG export.
package surface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"drawoverlay/internal/state"
)

// State is the surface lifecycle.
type State int

const (
	Loading State = iota
	Idle
	Drawing
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrLoading     = errors.New("surface: background image not loaded")
	ErrImageLoad   = errors.New("surface: background image failed to load")
	ErrEmptyExport = errors.New("surface: export produced no data")
)

func logger() *slog.Logger { return slog.Default().With("component", "surface") }

// Export is a flattened, PNG-encoded snapshot of background plus strokes.
type Export struct {
	Filename string
	Width    int
	Height   int
	PNG      []byte
}

// Surface is safe for use from multiple goroutines; input is expected from
// one event loop while loading and mirroring run on their own goroutines.
type Surface struct {
	mu sync.Mutex

	state      State
	background *image.RGBA
	annotation *image.RGBA
	native     state.Size
	display    state.Size
	maxView    state.Size
	last       state.Point

	done    chan struct{}
	once    sync.Once
	loadErr error

	// OnSegment is called after a locally drawn segment has been rendered.
	// It runs with the surface unlocked.
	OnSegment func(state.Segment)

	now func() time.Time
}

func New(maxView state.Size) *Surface {
	return &Surface{
		state:   Loading,
		maxView: maxView,
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Load fetches and decodes src in the background. On failure the surface
// stays in Loading; the error is logged and reported by Wait.
func (s *Surface) Load(ctx context.Context, src string) {
	go func() {
		img, err := OpenImage(ctx, src)
		if err != nil {
			logger().Error("background load failed", "src", src, "err", err)
			s.finish(fmt.Errorf("%w: %w", ErrImageLoad, err))
			return
		}
		s.LoadImage(img)
	}()
}

// LoadImage installs img as the background and sizes the annotation layer
// to match. It may be called once; later calls are ignored.
func (s *Surface) LoadImage(img image.Image) {
	s.mu.Lock()
	if s.state != Loading {
		s.mu.Unlock()
		return
	}

	b := img.Bounds()
	native := state.Size{W: b.Dx(), H: b.Dy()}
	if native.Empty() {
		s.mu.Unlock()
		s.finish(fmt.Errorf("%w: empty image", ErrImageLoad))
		return
	}

	bg := image.NewRGBA(image.Rect(0, 0, native.W, native.H))
	draw.Draw(bg, bg.Bounds(), img, b.Min, draw.Src)

	s.background = bg
	s.annotation = image.NewRGBA(bg.Bounds())
	s.native = native
	s.display = state.FitDisplay(native, s.maxView)
	s.state = Idle
	s.mu.Unlock()

	logger().Info("background ready", "native", native, "display", s.DisplaySize())
	s.finish(nil)
}

func (s *Surface) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		close(s.done)
	})
}

// Done is closed once loading has succeeded or failed.
func (s *Surface) Done() <-chan struct{} { return s.done }

// Wait blocks until loading has finished and returns the load error, if any.
func (s *Surface) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Surface) NativeSize() state.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.native
}

func (s *Surface) DisplaySize() state.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// SetViewport changes the maximum display area and recomputes the display
// size.
func (s *Surface) SetViewport(max state.Size) state.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxView = max
	s.display = state.FitDisplay(s.native, max)
	return s.display
}

// Background and Annotation expose the live buffers for display. Callers
// must not write to them.
func (s *Surface) Background() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

func (s *Surface) Annotation() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotation
}

// Start begins a stroke at pos, given relative to a surface rendered at
// the rendered size. It reports false while loading.
func (s *Surface) Start(pos state.Point, rendered state.Size) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Loading {
		return false
	}
	s.last = state.MapToBuffer(pos, rendered, s.native)
	s.state = Drawing
	return true
}

// Move draws from the previous position to pos with brush. Outside a
// stroke it does nothing and reports false.
func (s *Surface) Move(pos state.Point, rendered state.Size, brush state.BrushSettings) bool {
	s.mu.Lock()
	if s.state != Drawing {
		s.mu.Unlock()
		return false
	}

	cur := state.MapToBuffer(pos, rendered, s.native)
	seg := state.Segment{From: s.last, To: cur, Brush: brush}
	s.last = cur
	err := renderSegment(s.annotation, seg)
	s.mu.Unlock()

	if err != nil {
		logger().Warn("segment dropped", "err", err, "brush", brush)
		return false
	}
	if s.OnSegment != nil {
		s.OnSegment(seg)
	}
	return true
}

// End finishes the current stroke without drawing.
func (s *Surface) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Drawing {
		s.state = Idle
	}
}

// Apply renders a segment given in buffer coordinates, such as one received
// from a mirror peer. It does not touch the pointer state.
func (s *Surface) Apply(seg state.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Loading {
		return ErrLoading
	}
	return renderSegment(s.annotation, seg)
}

// Export flattens background and annotation at native size and encodes the
// result as PNG. The pixels are captured when Export is called; drawing may
// continue while encoding runs.
func (s *Surface) Export() (*Export, error) {
	s.mu.Lock()
	if s.state == Loading {
		s.mu.Unlock()
		return nil, ErrLoading
	}
	merged := image.NewRGBA(image.Rect(0, 0, s.native.W, s.native.H))
	draw.Draw(merged, merged.Bounds(), s.background, image.Point{}, draw.Src)
	draw.Draw(merged, merged.Bounds(), s.annotation, image.Point{}, draw.Over)
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, merged); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyExport, err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyExport
	}

	b := merged.Bounds()
	return &Export{
		Filename: state.NewImageName(s.now()),
		Width:    b.Dx(),
		Height:   b.Dy(),
		PNG:      buf.Bytes(),
	}, nil
}
