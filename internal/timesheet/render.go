package timesheet

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"tutorsheet/internal/capture"
	appLog "tutorsheet/internal/log"
)

//go:embed timesheet.html.tmpl
var pageTemplate string

var tmpl = template.Must(template.New("timesheet").Parse(pageTemplate))

// Render writes the sheet as a standalone HTML document.
func Render(w io.Writer, s Sheet) error {
	if err := tmpl.Execute(w, s); err != nil {
		return fmt.Errorf("timesheet: render: %w", err)
	}
	return nil
}

// WriteHTML renders the sheet to path.
func WriteHTML(path string, s Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("timesheet: %w", err)
	}
	if err := Render(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Printer turns a rendered page at url into a PDF at out.
type Printer func(ctx context.Context, url, out string) error

// ChromiumPrinter prints through headless Chromium in landscape.
func ChromiumPrinter(timeout time.Duration) Printer {
	return func(ctx context.Context, url, out string) error {
		return capture.PrintPDF(ctx, capture.PDFOptions{
			URL:        url,
			OutputPath: out,
			Landscape:  true,
			Timeout:    timeout,
		})
	}
}

// WritePDF renders the sheet to a temporary HTML file and prints it to path.
func WritePDF(ctx context.Context, path string, s Sheet, printer Printer) error {
	tmp, err := os.CreateTemp("", "tutorsheet-*.html")
	if err != nil {
		return fmt.Errorf("timesheet: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Render(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("timesheet: %w", err)
	}

	abs, err := filepath.Abs(tmpName)
	if err != nil {
		return fmt.Errorf("timesheet: %w", err)
	}
	start := time.Now()
	if err := printer(ctx, "file://"+filepath.ToSlash(abs), path); err != nil {
		return fmt.Errorf("timesheet: print: %w", err)
	}
	appLog.Debug("timesheet printed", "path", path, "pages", len(s.Pages), "elapsed", time.Since(start).String())
	return nil
}
