// Package export writes a flattened drawing to local files.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"drawoverlay/internal/surface"

	"github.com/jung-kurt/gofpdf"
)

// PDF writes a one-page document whose page is exactly the drawing, one
// point per pixel.
func PDF(w io.Writer, exp *surface.Export) error {
	wd, ht := float64(exp.Width), float64(exp.Height)
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.SetCreator("drawoverlay", false)
	p.SetTitle(exp.Filename, false)
	p.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader(exp.Filename, opts, bytes.NewReader(exp.PNG))
	p.ImageOptions(exp.Filename, 0, 0, wd, ht, false, opts, 0, "")
	if err := p.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return p.Output(w)
}

// WriteFile stores exp at path as PDF when the extension says so and as
// PNG otherwise.
func WriteFile(path string, exp *surface.Export) error {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := PDF(f, exp); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return os.WriteFile(path, exp.PNG, 0o644)
}
