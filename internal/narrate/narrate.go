package narrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/autolysis-cli/internal/ai"
	"github.com/KaramelBytes/autolysis-cli/internal/utils"
)

const (
	DefaultReportName = "narration.txt"
	HTMLReportName    = "report.html"
)

// Request describes one narration call.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
	// PromptLimit truncates the prompt to roughly this many tokens when > 0.
	PromptLimit int
	OutDir      string
	ReportName  string
	// HTML also renders the narration as a standalone HTML page.
	HTML   bool
	Title  string
	Logger *slog.Logger
}

// Result is what Narrate produced.
type Result struct {
	Text         string
	Path         string
	HTMLPath     string
	Model        string
	RequestID    string
	PromptTokens int
	Truncated    bool
	Usage        ai.Usage
}

// FitPrompt applies a token limit to prompt and reports whether it was cut.
func FitPrompt(prompt string, limit int) (string, bool) {
	if limit <= 0 || utils.CountTokens(prompt) <= limit {
		return prompt, false
	}
	return utils.TruncateToTokenLimit(prompt, limit), true
}

// Narrate sends the prompt to rt and writes the returned text to
// OutDir/ReportName.
func Narrate(ctx context.Context, rt ai.Runtime, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}
	name := req.ReportName
	if name == "" {
		name = DefaultReportName
	}
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("report name %q must be a plain file name", name)
	}

	prompt, truncated := FitPrompt(req.Prompt, req.PromptLimit)
	if truncated {
		log.Warn("prompt truncated to fit the token limit", "limit", req.PromptLimit, "tokens", utils.CountTokens(req.Prompt))
	}
	out := &Result{PromptTokens: utils.CountTokens(prompt), Truncated: truncated}

	log.Debug("requesting narration", "model", req.Model, "prompt_tokens", out.PromptTokens)
	resp, err := rt.Generate(ctx, ai.GenerateRequest{
		Model:       req.Model,
		Messages:    Messages(prompt),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	out.Text = resp.Text()
	if strings.TrimSpace(out.Text) == "" {
		return nil, errors.New("language model returned an empty narration")
	}
	out.Model = resp.Model
	if out.Model == "" {
		out.Model = req.Model
	}
	out.RequestID = resp.RequestID
	out.Usage = resp.Usage

	out.Path = filepath.Join(req.OutDir, name)
	if err := utils.SafeWriteFile(out.Path, []byte(out.Text)); err != nil {
		return nil, fmt.Errorf("write narration: %w", err)
	}
	if req.HTML {
		out.HTMLPath = filepath.Join(req.OutDir, HTMLReportName)
		if err := utils.SafeWriteFile(out.HTMLPath, RenderHTML(out.Text, req.Title)); err != nil {
			return nil, fmt.Errorf("write html report: %w", err)
		}
	}
	return out, nil
}
