package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Default print parameters for the timesheet. Paper size is US Letter.
const (
	DefaultPaperWidthIn  = 8.5
	DefaultPaperHeightIn = 11.0
	DefaultTimeoutSec    = 60

	// ReadySelector matches the element a page sets once it has rendered.
	ReadySelector = `[data-ready="true"]`
)

// PDFOptions defines parameters for a Chromium-based PDF print.
type PDFOptions struct {
	// URL to print, e.g. "file:///tmp/timesheet.html" or
	// "http://127.0.0.1:8080/timesheet".
	URL string

	// OutputPath is where the PDF will be written.
	OutputPath string

	// Landscape rotates the page. The timesheet is always landscape.
	Landscape bool

	// Timeout bounds the entire print operation. If zero, a sane default
	// (DefaultTimeoutSec) is used.
	Timeout time.Duration
}

// PrintPDF launches a headless Chromium instance via chromedp, navigates to
// opts.URL, waits for the DOM to signal that rendering is complete, and
// prints the page to a PDF at opts.OutputPath.
//
// Rendering-complete condition:
//   - The page root element exposes a data-ready attribute:
//     <main data-ready="true" ...>
//   - This function will wait until ReadySelector is visible before
//     printing.
func PrintPDF(parentCtx context.Context, opts PDFOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	// Create a new chromedp context.
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	// Apply timeout to the entire print sequence.
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPaperWidth(DefaultPaperWidthIn).
				WithPaperHeight(DefaultPaperHeightIn).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, pdf, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PDF: %w", err)
	}

	return nil
}
