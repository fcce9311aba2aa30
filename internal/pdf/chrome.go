package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sony/gobreaker/v2"
)

// A4 paper size in inches.
const (
	paperWidthA4  = 8.27
	paperHeightA4 = 11.69
)

// ErrEngineUnavailable is returned while the circuit breaker is open after
// repeated conversion failures.
var ErrEngineUnavailable = errors.New("pdf engine unavailable")

// Config holds configuration for the headless Chrome engine.
type Config struct {
	// ExecPath optionally points at a specific Chrome/Chromium binary.
	ExecPath string

	// Timeout bounds a single conversion, browser launch included.
	Timeout time.Duration
}

// ChromeEngine converts HTML to PDF by driving headless Chrome over the
// DevTools protocol. A shared allocator context is held for the lifetime of
// the engine; each conversion runs in its own browser context bounded by the
// configured timeout and is canceled when the engine shuts down.
type ChromeEngine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker[[]byte]
	logger      *slog.Logger
}

// NewChromeEngine creates a Chrome-backed converter. Close must be called on
// shutdown to terminate any running browser processes.
func NewChromeEngine(cfg Config, logger *slog.Logger) *ChromeEngine {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Repeated launch/convert failures trip the breaker so a broken Chrome
	// install fails fast instead of paying a browser launch per request.
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "pdf-engine",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("pdf engine breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &ChromeEngine{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     timeout,
		breaker:     breaker,
		logger:      logger,
	}
}

// Convert renders the HTML document to a single A4 PDF (multi-page when the
// content overflows) with background graphics printed. Failures are not
// retried.
func (e *ChromeEngine) Convert(ctx context.Context, html []byte) ([]byte, error) {
	out, err := e.breaker.Execute(func() ([]byte, error) {
		return e.convert(ctx, html)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrEngineUnavailable
		}
		return nil, err
	}
	return out, nil
}

func (e *ChromeEngine) convert(ctx context.Context, html []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Derive the browser context from the allocator so shutting down the
	// engine cancels an in-flight conversion.
	browserCtx, browserCancel := chromedp.NewContext(e.allocCtx)
	defer browserCancel()

	go func() {
		select {
		case <-ctx.Done():
			browserCancel()
		case <-browserCtx.Done():
		}
	}()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(cctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(cctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(frameTree.Frame.ID, string(html)).Do(cctx)
		}),
		chromedp.ActionFunc(func(cctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthA4).
				WithPaperHeight(paperHeightA4).
				Do(cctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pdf conversion timed out after %s: %w", e.timeout, err)
		}
		return nil, fmt.Errorf("convert html to pdf: %w", err)
	}

	return pdf, nil
}

// Healthy reports whether the engine is accepting conversions. It is used as
// a non-critical readiness check.
func (e *ChromeEngine) Healthy(_ context.Context) error {
	if e.breaker.State() == gobreaker.StateOpen {
		return ErrEngineUnavailable
	}
	return nil
}

// Close terminates the shared allocator, killing any browser processes.
func (e *ChromeEngine) Close() {
	e.allocCancel()
}
