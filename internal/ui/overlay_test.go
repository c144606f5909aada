package ui

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"drawoverlay/internal/state"
	"drawoverlay/internal/surface"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedSurface(t *testing.T, w, h int, max state.Size) *surface.Surface {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	s := surface.New(max)
	s.LoadImage(img)
	require.Equal(t, surface.Idle, s.State())
	return s
}

func TestOverlayMinSizeIsDisplaySize(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 400, 200, state.Size{W: 200, H: 200})
	o := NewOverlay(s, state.DefaultBrush())
	assert.Equal(t, fyne.NewSize(200, 100), o.MinSize())
}

func TestOverlayMouseDrawsScaled(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 400, 200, state.Size{W: 200, H: 200})
	o := NewOverlay(s, state.BrushSettings{Mode: state.ModePen, Color: state.Color{R: 255, A: 255}, Width: 6})
	o.Resize(fyne.NewSize(200, 100))

	o.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 50)}, Button: desktop.MouseButtonPrimary})
	assert.Equal(t, surface.Drawing, s.State())
	o.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(90, 50)}})
	o.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(90, 50)}, Button: desktop.MouseButtonPrimary})
	assert.Equal(t, surface.Idle, s.State())

	// Screen x 50 maps to buffer x 100.
	got := s.Annotation().RGBAAt(100, 100)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, got)
	assert.Zero(t, s.Annotation().RGBAAt(300, 100).A)
}

func TestOverlayIgnoresSecondaryButton(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 100, 100, state.Size{})
	o := NewOverlay(s, state.DefaultBrush())
	o.Resize(fyne.NewSize(100, 100))

	o.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonSecondary})
	assert.Equal(t, surface.Idle, s.State())
	o.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 60)}})
	assert.Zero(t, s.Annotation().RGBAAt(35, 35).A)
}

func TestOverlayTouch(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 100, 100, state.Size{})
	o := NewOverlay(s, state.DefaultBrush())
	o.Resize(fyne.NewSize(100, 100))

	o.TouchDown(&mobile.TouchEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 20)}})
	o.TouchDown(&mobile.TouchEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(90, 90)}})
	o.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 20)}})
	o.TouchUp(&mobile.TouchEvent{})
	assert.Equal(t, surface.Idle, s.State())

	// The second finger did not move the stroke origin.
	assert.Equal(t, uint8(255), s.Annotation().RGBAAt(30, 20).A)
	assert.Zero(t, s.Annotation().RGBAAt(70, 55).A)
}

func TestOverlayInputWhileLoading(t *testing.T) {
	test.NewTempApp(t)

	s := surface.New(state.Size{W: 100, H: 100})
	o := NewOverlay(s, state.DefaultBrush())
	o.Resize(fyne.NewSize(100, 100))

	o.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonPrimary})
	o.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 20)}})
	assert.Equal(t, surface.Loading, s.State())
	assert.Nil(t, s.Annotation())
}

func TestToolbarControlsBrush(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 50, 50, state.Size{})
	o := NewOverlay(s, state.DefaultBrush())
	tb := NewToolbar(o, nil, test.NewWindow(nil))
	tb.Object()

	assert.Equal(t, "Pen", tb.mode.Selected)
	tb.mode.SetSelected("Glow")
	assert.Equal(t, state.ModeGlow, o.Brush().Mode)

	tb.width.SetValue(12)
	assert.Equal(t, 12.0, o.Brush().Width)
	assert.True(t, tb.save.Disabled())
}

func TestToolbarSaveDisablesUntilDone(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 20, 10, state.Size{})
	o := NewOverlay(s, state.DefaultBrush())

	release := make(chan struct{})
	got := make(chan *surface.Export, 1)
	upload := func(ctx context.Context, exp *surface.Export) (string, error) {
		got <- exp
		<-release
		return "/" + exp.Filename, nil
	}
	tb := NewToolbar(o, upload, test.NewWindow(nil))
	var saved string
	tb.OnSaved = func(p string) { saved = p }

	tb.Save()
	assert.True(t, tb.save.Disabled())

	var exp *surface.Export
	select {
	case exp = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("upload not called")
	}
	assert.Equal(t, 20, exp.Width)
	assert.Equal(t, 10, exp.Height)

	// A second press while the first is outstanding does nothing.
	tb.Save()
	select {
	case <-got:
		t.Fatal("second upload started")
	default:
	}

	close(release)
	require.Eventually(t, func() bool { return !tb.save.Disabled() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Saved /"+exp.Filename, tb.status.Text)
	assert.Equal(t, "/"+exp.Filename, saved)
}

func TestToolbarSaveFailure(t *testing.T) {
	test.NewTempApp(t)

	s := surface.New(state.Size{})
	o := NewOverlay(s, state.DefaultBrush())
	tb := NewToolbar(o, func(context.Context, *surface.Export) (string, error) {
		return "", errors.New("unreachable")
	}, test.NewWindow(nil))

	tb.Save()
	require.Eventually(t, func() bool { return !tb.save.Disabled() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Image is still loading", tb.status.Text)
}

func TestToolbarSwatchSelection(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 50, 50, state.Size{})
	o := NewOverlay(s, state.DefaultBrush())
	tb := NewToolbar(o, nil, test.NewWindow(nil))
	tb.Object()

	require.Len(t, tb.swatches, len(palette))
	assert.True(t, tb.swatches[0].Selected, "default white brush")

	test.Tap(tb.swatches[2])
	assert.Equal(t, state.Color{R: 255, A: 255}, o.Brush().Color)
	assert.True(t, tb.swatches[2].Selected)
	assert.False(t, tb.swatches[0].Selected)
}

func TestToolbarSetUploaderEnablesSave(t *testing.T) {
	test.NewTempApp(t)

	s := loadedSurface(t, 20, 10, state.Size{})
	o := NewOverlay(s, state.DefaultBrush())
	tb := NewToolbar(o, nil, test.NewWindow(nil))
	require.True(t, tb.save.Disabled())

	paths := make(chan string, 1)
	tb.OnSaved = func(p string) { paths <- p }
	tb.SetUploader(func(_ context.Context, exp *surface.Export) (string, error) {
		return "/" + exp.Filename, nil
	})
	assert.False(t, tb.save.Disabled())

	tb.Save()
	select {
	case p := <-paths:
		assert.Regexp(t, `^/drawing-\d+-[0-9a-f]{8}\.png$`, p)
	case <-time.After(2 * time.Second):
		t.Fatal("save did not complete")
	}
	require.Eventually(t, func() bool { return !tb.save.Disabled() }, 2*time.Second, 10*time.Millisecond)

	tb.SetUploader(nil)
	assert.True(t, tb.save.Disabled())
}
