package ui

import (
	"drawoverlay/internal/state"
	"drawoverlay/internal/surface"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"
)

// Overlay shows a surface's background with its annotation layer on top
// and turns mouse and touch input into strokes.
type Overlay struct {
	widget.BaseWidget

	surface  *surface.Surface
	brush    state.BrushSettings
	touching bool
}

var _ fyne.Widget = (*Overlay)(nil)
var _ fyne.Draggable = (*Overlay)(nil)
var _ desktop.Mouseable = (*Overlay)(nil)
var _ mobile.Touchable = (*Overlay)(nil)

func NewOverlay(s *surface.Surface, brush state.BrushSettings) *Overlay {
	o := &Overlay{surface: s, brush: brush}
	o.ExtendBaseWidget(o)

	go func() {
		<-s.Done()
		fyne.Do(o.Refresh)
	}()
	return o
}

func (o *Overlay) Surface() *surface.Surface { return o.surface }

func (o *Overlay) Brush() state.BrushSettings { return o.brush }

func (o *Overlay) SetBrush(b state.BrushSettings) { o.brush = b }

func (o *Overlay) rendered() state.Size {
	sz := o.Size()
	return state.Size{W: int(sz.Width), H: int(sz.Height)}
}

func toPoint(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func (o *Overlay) begin(p fyne.Position) {
	o.surface.Start(toPoint(p), o.rendered())
}

func (o *Overlay) move(p fyne.Position) {
	if o.surface.Move(toPoint(p), o.rendered(), o.brush) {
		o.Refresh()
	}
}

func (o *Overlay) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		o.begin(e.Position)
	}
}

func (o *Overlay) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		o.surface.End()
	}
}

// Dragged also keeps an enclosing scroll container from panning while a
// stroke is drawn.
func (o *Overlay) Dragged(e *fyne.DragEvent) {
	o.move(e.Position)
}

func (o *Overlay) DragEnd() {
	o.surface.End()
}

// Only the first finger draws.
func (o *Overlay) TouchDown(e *mobile.TouchEvent) {
	if o.touching {
		return
	}
	o.touching = true
	o.begin(e.Position)
}

func (o *Overlay) TouchUp(*mobile.TouchEvent) {
	o.touching = false
	o.surface.End()
}

func (o *Overlay) TouchCancel(*mobile.TouchEvent) {
	o.touching = false
	o.surface.End()
}

func (o *Overlay) CreateRenderer() fyne.WidgetRenderer {
	r := &overlayRenderer{
		overlay:    o,
		background: canvas.NewImageFromImage(nil),
		annotation: canvas.NewImageFromImage(nil),
		progress:   widget.NewProgressBarInfinite(),
	}
	for _, img := range []*canvas.Image{r.background, r.annotation} {
		img.FillMode = canvas.ImageFillStretch
		img.ScaleMode = canvas.ImageScaleSmooth
		img.Hide()
	}
	r.Refresh()
	return r
}

type overlayRenderer struct {
	overlay    *Overlay
	background *canvas.Image
	annotation *canvas.Image
	progress   *widget.ProgressBarInfinite
}

func (r *overlayRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.annotation, r.progress}
}

func (r *overlayRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.annotation.Resize(size)

	bar := r.progress.MinSize()
	r.progress.Resize(fyne.NewSize(size.Width, bar.Height))
	r.progress.Move(fyne.NewPos(0, (size.Height-bar.Height)/2))
}

// MinSize is the display size once the background is known.
func (r *overlayRenderer) MinSize() fyne.Size {
	d := r.overlay.surface.DisplaySize()
	if d.Empty() {
		return fyne.NewSize(320, r.progress.MinSize().Height)
	}
	return fyne.NewSize(float32(d.W), float32(d.H))
}

func (r *overlayRenderer) Refresh() {
	s := r.overlay.surface
	if s.State() == surface.Loading {
		r.progress.Show()
		r.progress.Start()
		return
	}
	r.progress.Stop()
	r.progress.Hide()

	if bg := s.Background(); r.background.Image != bg {
		r.background.Image = bg
		r.background.Show()
		r.background.Refresh()
	}
	r.annotation.Image = s.Annotation()
	r.annotation.Show()
	r.annotation.Refresh()
}

func (r *overlayRenderer) Destroy() {
	r.progress.Stop()
}
