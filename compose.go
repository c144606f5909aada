package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"drawoverlay/internal/export"
	"drawoverlay/internal/net"
	"drawoverlay/internal/state"
	"drawoverlay/internal/surface"

	"github.com/tdewolff/argp"
)

// Compose replays recorded segments over a background image.
type Compose struct {
	Config   string `short:"c" desc:"TOML configuration file"`
	Segments string `short:"s" default:"-" desc:"JSON segment stream, - for stdin"`
	Output   string `short:"o" desc:"Output file, .pdf or .png; defaults to the generated drawing name"`
	Upload   string `short:"u" desc:"Also upload the result to this endpoint"`
	Image    string `index:"0" desc:"Background image path or URL"`
}

func (cmd *Compose) Run() error {
	if cmd.Image == "" {
		return argp.ShowUsage
	}
	if _, err := loadConfig(cmd.Config); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	segs, err := readSegments(cmd.Segments)
	if err != nil {
		return err
	}
	exp, err := compose(ctx, cmd.Image, segs)
	if err != nil {
		return err
	}

	out := cmd.Output
	if out == "" {
		out = exp.Filename
	}
	if err := export.WriteFile(out, exp); err != nil {
		return err
	}
	slog.Info("composed", "segments", len(segs), "output", out, "width", exp.Width, "height", exp.Height)

	if cmd.Upload != "" {
		path, err := net.NewClient(cmd.Upload).Upload(ctx, exp)
		if err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

func readSegments(name string) ([]state.Segment, error) {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return state.ReadSegments(r)
}

// compose draws segs, given in native pixels, over the image at src.
func compose(ctx context.Context, src string, segs []state.Segment) (*surface.Export, error) {
	img, err := surface.OpenImage(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", surface.ErrImageLoad, err)
	}

	s := surface.New(state.Size{})
	s.LoadImage(img)
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	for _, seg := range segs {
		if err := s.Apply(seg); err != nil {
			return nil, err
		}
	}
	return s.Export()
}
