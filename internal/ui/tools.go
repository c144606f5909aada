package ui

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"drawoverlay/internal/export"
	"drawoverlay/internal/state"
	"drawoverlay/internal/surface"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const uploadTimeout = 30 * time.Second

var palette = []state.Color{
	state.White,
	state.Black,
	{R: 255, A: 255},
	{G: 128, A: 255},
	{B: 255, A: 255},
}

var modeLabels = []string{"Pen", "Eraser", "Glow"}

// Uploader sends a finished drawing somewhere and returns where it landed.
type Uploader func(ctx context.Context, exp *surface.Export) (string, error)

type colorSwatch struct {
	widget.BaseWidget
	Color    state.Color
	Selected bool
	OnTapped func(state.Color)
}

func newColorSwatch(c state.Color, tapped func(state.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) SetSelected(selected bool) {
	if s.Selected == selected {
		return
	}
	s.Selected = selected
	s.Refresh()
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(28, 28))
	border := canvas.NewRectangle(color.Transparent)

	r := &swatchRenderer{
		WidgetRenderer: widget.NewSimpleRenderer(container.NewStack(rect, border)),
		swatch:         s,
		border:         border,
	}
	r.Refresh()
	return r
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// swatchRenderer outlines the selected swatch in the theme's primary color.
type swatchRenderer struct {
	fyne.WidgetRenderer
	swatch *colorSwatch
	border *canvas.Rectangle
}

func (r *swatchRenderer) Refresh() {
	if r.swatch.Selected {
		r.border.StrokeColor = theme.Color(theme.ColorNamePrimary)
		r.border.StrokeWidth = 3
	} else {
		r.border.StrokeColor = color.Gray{Y: 150}
		r.border.StrokeWidth = 1
	}
	r.border.Refresh()
}

// Toolbar holds the brush controls and the save actions for one overlay.
type Toolbar struct {
	overlay *Overlay
	upload  Uploader
	window  fyne.Window

	mode   *widget.Select
	width  *widget.Slider
	save   *widget.Button
	pdf    *widget.Button
	status *widget.Label

	swatches []*colorSwatch
	saving   bool

	// OnSaved runs on the UI goroutine after a successful upload.
	OnSaved func(path string)
}

// NewToolbar wires controls to o. A nil upload disables saving.
func NewToolbar(o *Overlay, upload Uploader, win fyne.Window) *Toolbar {
	t := &Toolbar{overlay: o, upload: upload, window: win}
	brush := o.Brush()

	t.mode = widget.NewSelect(modeLabels, func(s string) {
		t.overlay.SetBrush(t.overlay.Brush().WithMode(state.ParseDrawMode(s)))
	})
	if i := int(brush.Mode) - 1; i >= 0 && i < len(modeLabels) {
		t.mode.SetSelectedIndex(i)
	}

	t.width = widget.NewSlider(1, 50)
	t.width.Step = 1
	t.width.SetValue(brush.Width)
	t.width.OnChanged = func(v float64) {
		t.overlay.SetBrush(t.overlay.Brush().WithWidth(v))
	}

	for _, c := range palette {
		t.swatches = append(t.swatches, newColorSwatch(c, t.selectColor))
	}
	t.markSwatch(brush.Color)

	t.save = widget.NewButtonWithIcon("Save", theme.UploadIcon(), t.Save)
	if upload == nil {
		t.save.Disable()
	}
	t.pdf = widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), t.ExportFile)
	t.status = widget.NewLabel("Loading image...")
	t.status.Truncation = fyne.TextTruncateEllipsis
	return t
}

// Object lays out the controls in a single row.
func (t *Toolbar) Object() fyne.CanvasObject {
	swatches := container.NewHBox()
	for _, s := range t.swatches {
		swatches.Add(s)
	}
	slider := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), t.width)

	return container.NewHBox(
		widget.NewLabel("Mode:"),
		t.mode,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		swatches,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		slider,
		widget.NewSeparator(),
		t.save,
		t.pdf,
		layout.NewSpacer(),
	)
}

func (t *Toolbar) Status() *widget.Label { return t.status }

func (t *Toolbar) selectColor(c state.Color) {
	t.overlay.SetBrush(t.overlay.Brush().WithColor(c))
	t.markSwatch(c)
}

// markSwatch selects the swatch showing c. No swatch is selected for a
// color outside the palette.
func (t *Toolbar) markSwatch(c state.Color) {
	for _, s := range t.swatches {
		s.SetSelected(s.Color == c)
	}
}

// SetUploader replaces the upload target and enables Save when it is not
// nil. It must be called on the UI goroutine.
func (t *Toolbar) SetUploader(upload Uploader) {
	t.upload = upload
	switch {
	case upload == nil:
		t.save.Disable()
	case !t.saving:
		t.save.Enable()
	}
}

func (t *Toolbar) SetStatus(text string) { t.status.SetText(text) }

// Save exports the drawing and uploads it off the UI goroutine. The button
// stays disabled until the upload has finished.
func (t *Toolbar) Save() {
	if t.upload == nil || t.saving {
		return
	}
	t.saving = true
	t.save.Disable()
	t.SetStatus("Saving...")

	upload := t.upload
	go func() {
		path, err := t.exportAndUpload(upload)
		fyne.Do(func() {
			defer func() {
				t.saving = false
				if t.upload != nil {
					t.save.Enable()
				}
			}()
			if err != nil {
				t.SetStatus(saveFailure(err))
				return
			}
			t.SetStatus("Saved " + path)
			if t.OnSaved != nil {
				t.OnSaved(path)
			}
		})
	}()
}

func (t *Toolbar) exportAndUpload(upload Uploader) (string, error) {
	exp, err := t.overlay.Surface().Export()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	path, err := upload(ctx, exp)
	if err != nil {
		slog.Error("upload failed", "component", "ui", "file", exp.Filename, "err", err)
		return "", err
	}
	slog.Info("drawing saved", "component", "ui", "path", path, "bytes", len(exp.PNG))
	return path, nil
}

func saveFailure(err error) string {
	if errors.Is(err, surface.ErrLoading) {
		return "Image is still loading"
	}
	return "Save failed: " + err.Error()
}

// ExportFile asks for a local destination and writes the drawing there, as
// PDF when the chosen name ends in .pdf and as PNG otherwise.
func (t *Toolbar) ExportFile() {
	exp, err := t.overlay.Surface().Export()
	if err != nil {
		t.SetStatus(saveFailure(err))
		return
	}

	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, t.window)
			return
		}
		if w == nil {
			return
		}
		if err := writeExport(w, exp); err != nil {
			slog.Error("export failed", "component", "ui", "uri", w.URI().String(), "err", err)
			dialog.ShowError(err, t.window)
			return
		}
		t.SetStatus("Exported " + w.URI().Name())
	}, t.window)
	d.SetFileName(strings.TrimSuffix(exp.Filename, ".png") + ".pdf")
	d.Show()
}

func writeExport(w fyne.URIWriteCloser, exp *surface.Export) error {
	var err error
	if strings.EqualFold(w.URI().Extension(), ".pdf") {
		err = export.PDF(w, exp)
	} else {
		_, err = w.Write(exp.PNG)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
