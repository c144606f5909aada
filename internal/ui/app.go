package ui

import (
	"context"
	"fmt"
	"log/slog"

	"drawoverlay/internal/config"
	"drawoverlay/internal/net"
	"drawoverlay/internal/state"
	"drawoverlay/internal/surface"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
)

// RunApp opens the drawing window for cfg.Client.Image and blocks until it
// is closed.
func RunApp(ctx context.Context, cfg config.Config) error {
	brush, err := cfg.Brush.Settings()
	if err != nil {
		return err
	}

	myApp := app.New()
	myWindow := myApp.NewWindow("Draw Overlay")
	margin := float32(cfg.Client.Margin)
	myWindow.Resize(fyne.NewSize(float32(cfg.Client.MaxWidth)+margin, float32(cfg.Client.MaxHeight)+margin))

	s := surface.New(cfg.Client.Viewport())
	overlay := NewOverlay(s, brush)
	toolbar := NewToolbar(overlay, nil, myWindow)
	go func() {
		upload := uploader(ctx, cfg.Client)
		fyne.Do(func() { toolbar.SetUploader(upload) })
	}()

	s.Load(ctx, cfg.Client.Image)
	go func() {
		err := s.Wait(ctx)
		fyne.Do(func() {
			if err != nil {
				toolbar.SetStatus(fmt.Sprintf("Could not load %s", cfg.Client.Image))
				return
			}
			d := s.DisplaySize()
			toolbar.SetStatus(fmt.Sprintf("Ready (%dx%d)", d.W, d.H))
		})
	}()

	if cfg.Client.Mirror != "" {
		m, err := net.DialMirror(ctx, cfg.Client.Mirror, state.NewSequencer())
		if err != nil {
			slog.Warn("mirror unavailable", "component", "ui", "url", cfg.Client.Mirror, "err", err)
		} else {
			defer m.Close()
			attachMirror(overlay, toolbar, m)
		}
	}

	content := container.NewBorder(toolbar.Object(), toolbar.Status(), nil, nil,
		container.NewScroll(container.NewCenter(overlay)))
	myWindow.SetContent(content)
	myWindow.ShowAndRun()
	return nil
}

// uploader resolves the upload endpoint, falling back to mDNS discovery
// when none is configured. It returns nil when no server can be found.
// Discovery may block for up to the discover timeout.
func uploader(ctx context.Context, cfg config.Client) Uploader {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		services, err := net.Browse(ctx, cfg.DiscoverTimeout.Duration)
		if err != nil || len(services) == 0 {
			slog.Warn("no upload server found, saving disabled", "component", "ui", "err", err)
			return nil
		}
		endpoint = services[0].Endpoint
		slog.Info("discovered upload server", "component", "ui", "instance", services[0].Instance, "endpoint", endpoint)
	}
	return net.NewClient(endpoint).Upload
}

// attachMirror sends local segments to m and draws the ones other surfaces
// send back.
func attachMirror(o *Overlay, t *Toolbar, m *net.Mirror) {
	o.Surface().OnSegment = func(seg state.Segment) {
		if err := m.Send(seg); err != nil {
			slog.Debug("mirror send failed", "component", "ui", "err", err)
		}
	}

	go func() {
		err := m.Run(
			func(seg state.Segment) {
				fyne.Do(func() {
					if o.Surface().Apply(seg) == nil {
						o.Refresh()
					}
				})
			},
			func(path string) {
				fyne.Do(func() { t.SetStatus("Shared " + path) })
			},
		)
		if err != nil {
			slog.Warn("mirror closed", "component", "ui", "err", err)
		}
	}()
}
