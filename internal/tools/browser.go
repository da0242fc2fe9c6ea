package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderTool renders script-heavy pages in a headless browser and
// returns the visible text, for sources the plain reader cannot
// extract. The browser process is started lazily and shared across
// calls within a run.
type RenderTool struct {
	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewRenderTool() *RenderTool {
	return &RenderTool{}
}

func (b *RenderTool) Name() string {
	return "render_page"
}

func (b *RenderTool) Description() string {
	return "Render a JavaScript-heavy webpage in a headless browser and return its visible text. Use only when read_page returns empty or broken content."
}

func (b *RenderTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to render",
			},
			"wait_selector": map[string]any{
				"type":        "string",
				"description": "CSS selector to wait for before extracting text (optional)",
			},
			"wait_seconds": map[string]any{
				"type":        "integer",
				"description": "Extra seconds to wait after load for scripts to settle (optional)",
			},
		},
		"required": []string{"url"},
	}
}

func (b *RenderTool) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *RenderTool) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// Close shuts the shared browser down; called when the run finishes.
func (b *RenderTool) Close() {
	b.mu.Lock()
	b.cleanup()
	b.mu.Unlock()
}

func (b *RenderTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		URL          string `json:"url"`
		WaitSelector string `json:"wait_selector"`
		WaitSeconds  int    `json:"wait_seconds"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.URL == "" {
		return "", fmt.Errorf("url must not be empty")
	}

	if err := b.initBrowser(); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %v", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	actions := []chromedp.Action{chromedp.Navigate(args.URL)}
	if args.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(args.WaitSelector, chromedp.ByQuery))
	}
	if args.WaitSeconds > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(args.WaitSeconds)*time.Second))
	}

	var text string
	actions = append(actions, chromedp.Text("body", &text, chromedp.ByQuery))

	if err := chromedp.Run(actionCtx, actions...); err != nil {
		return fmt.Sprintf("Render failed: %v", err), nil
	}

	text = strings.TrimSpace(text)
	if len(text) > pageContentCap {
		text = text[:pageContentCap] + "\n... (content truncated) ..."
	}
	return fmt.Sprintf("SOURCE: %s\n\n%s", args.URL, text), nil
}
