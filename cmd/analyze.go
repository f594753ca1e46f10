package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/autolysis-cli/internal/ai"
	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
	"github.com/KaramelBytes/autolysis-cli/internal/charts"
	cfgpkg "github.com/KaramelBytes/autolysis-cli/internal/config"
	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/KaramelBytes/autolysis-cli/internal/narrate"
	"github.com/KaramelBytes/autolysis-cli/internal/run"
	"github.com/KaramelBytes/autolysis-cli/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	analysisFileName = "analysis.yaml"
	promptFileName   = "prompt.txt"
)

var (
	anaDelimiter     string
	anaSheet         string
	anaMaxRows       int
	anaClusters      int
	anaContamination float64
	anaSeed          int64
	anaProvider      string
	anaModel         string
	anaMaxTokens     int
	anaTemp          float64
	anaReportName    string
	anaPromptLimit   int
	anaOllamaHost    string
	anaDryRun        bool
	anaPrintPrompt   bool
	anaHTML          bool
	anaRender        bool
	anaNoCharts      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset_path> <output_dir>",
	Short: "Analyze a dataset, render charts and write a narrated report",
	Example: `  autolysis analyze data/goodreads.csv goodreads
  autolysis analyze sales.xlsx out --sheet Q3 --clusters 4
  autolysis analyze data.csv out --dry-run
  autolysis analyze data.csv out --provider ollama --model llama3.1:8b-instruct --html`,
	Args: checkArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := analyzeConfig(cmd.Flags())
		if err != nil {
			return err
		}
		return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], c)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (default by extension)")
	f.StringVar(&anaSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	f.IntVar(&anaMaxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	f.IntVar(&anaClusters, "clusters", 3, "number of k-means clusters (overrides config)")
	f.Float64Var(&anaContamination, "contamination", 0.05, "expected share of outliers for the isolation forest (overrides config)")
	f.Int64Var(&anaSeed, "seed", 42, "random seed for outlier detection and clustering (overrides config)")
	f.StringVar(&anaProvider, "provider", "", "language model provider: aiproxy|openai|anthropic|ollama (overrides config)")
	f.StringVar(&anaModel, "model", "", "model name (default depends on provider)")
	f.IntVar(&anaMaxTokens, "max-tokens", 0, "max tokens for the narration (overrides config)")
	f.Float64Var(&anaTemp, "temperature", 0, "sampling temperature (overrides config)")
	f.StringVar(&anaReportName, "report-name", "", "narration file name inside output_dir (default narration.txt)")
	f.IntVar(&anaPromptLimit, "prompt-limit", 0, "truncate the prompt to this many tokens before sending")
	f.StringVar(&anaOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	f.BoolVar(&anaDryRun, "dry-run", false, "skip the model call and write prompt.txt with a cost estimate")
	f.BoolVar(&anaPrintPrompt, "print-prompt", false, "print the prompt being sent to the model")
	f.BoolVar(&anaHTML, "html", false, "also write the narration as report.html")
	f.BoolVar(&anaRender, "render", false, "print the narration, styled when stdout is a terminal")
	f.BoolVar(&anaNoCharts, "no-charts", false, "skip chart rendering")
}

// analyzeConfig applies the flags set in this invocation on top of the
// loaded configuration.
func analyzeConfig(f *pflag.FlagSet) (*cfgpkg.Global, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	c := *cfg
	if f.Changed("clusters") {
		c.Clusters = anaClusters
	}
	if f.Changed("contamination") {
		c.Contamination = anaContamination
	}
	if f.Changed("seed") {
		c.RandomSeed = anaSeed
	}
	if f.Changed("provider") {
		c.Provider = strings.ToLower(strings.TrimSpace(anaProvider))
	}
	if f.Changed("model") {
		c.Model = anaModel
	}
	if f.Changed("max-tokens") {
		c.MaxTokens = anaMaxTokens
	}
	if f.Changed("temperature") {
		c.Temperature = anaTemp
	}
	if f.Changed("report-name") {
		c.ReportName = anaReportName
	}
	if f.Changed("prompt-limit") {
		c.PromptLimit = anaPromptLimit
	}
	if f.Changed("ollama-host") {
		c.OllamaHost = anaOllamaHost
	}
	if f.Changed("html") {
		c.HTMLReport = anaHTML
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

func analysisOptions(c *cfgpkg.Global) analysis.Options {
	opt := analysis.DefaultOptions()
	opt.Clusters = c.Clusters
	opt.Contamination = c.Contamination
	opt.Seed = c.RandomSeed
	opt.Trees = c.IForestTrees
	opt.MaxSamples = c.IForestMaxSamples
	opt.MADThreshold = c.MADThreshold
	opt.Logger = logger
	return opt
}

func runtimeConfig(c *cfgpkg.Global) ai.RuntimeConfig {
	return ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.ResolveAPIKey(),
		BaseURL:     c.BaseURL,
		Host:        c.OllamaHost,
	}
}

func runAnalyze(ctx context.Context, out io.Writer, datasetPath, outDir string, c *cfgpkg.Global) error {
	delim, err := parseDelimiter(anaDelimiter)
	if err != nil {
		return err
	}
	model := c.Model
	if model == "" {
		model = ai.DefaultModel(c.Provider)
	}
	// fail before any work when the narration cannot be requested
	if !anaDryRun {
		if env := ai.KeyEnv(c.Provider); env != "" && c.ResolveAPIKey() == "" {
			return fmt.Errorf("%s is not set in the environment", env)
		}
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	manifest := run.New(datasetPath, outDir)

	frame, err := dataset.Load(datasetPath, dataset.LoadOptions{
		Delimiter: delim,
		Sheet:     anaSheet,
		MaxRows:   anaMaxRows,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	manifest.Encoding = frame.Encoding
	manifest.Rows = frame.Rows
	manifest.Columns = len(frame.Columns)
	logger.Info("dataset loaded", "path", datasetPath, "rows", frame.Rows, "columns", len(frame.Columns), "encoding", frame.Encoding)

	res, err := analysis.Analyze(frame, analysisOptions(c))
	if err != nil {
		return fmt.Errorf("analyze %s: %w", filepath.Base(datasetPath), err)
	}
	manifest.Notes = res.Notes
	for _, n := range []string{res.OutlierNote, res.ClusterNote} {
		if n != "" {
			info(out, "%s", n)
		}
	}

	if err := res.WriteYAML(filepath.Join(outDir, analysisFileName)); err != nil {
		return err
	}
	manifest.Analysis = analysisFileName

	var chartFiles []string
	if !anaNoCharts {
		copt := charts.DefaultOptions()
		copt.ClusterChart = c.ClusterChart
		copt.Logger = logger
		chartFiles, err = charts.Render(frame, res, outDir, copt)
		manifest.Charts = append(manifest.Charts, chartFiles...)
		if err != nil {
			_ = manifest.Save()
			return err
		}
		success(out, "Rendered %d chart(s) in %s", len(chartFiles), outDir)
	}

	prompt := narrate.BuildPrompt(res, chartFiles)
	tokens := utils.CountTokens(prompt)
	if c.PromptLimit > 0 && tokens > c.PromptLimit {
		warn(out, "prompt exceeds limit (%d > %d), it will be truncated", tokens, c.PromptLimit)
		tokens = c.PromptLimit
	}
	if mi, over := ai.ExceedsContext(model, tokens, c.MaxTokens); over {
		warn(out, "prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens)", tokens, c.MaxTokens, mi.Name, mi.ContextTokens)
	}

	if anaDryRun {
		fitted, _ := narrate.FitPrompt(prompt, c.PromptLimit)
		if err := utils.SafeWriteFile(filepath.Join(outDir, promptFileName), []byte(fitted)); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}
		manifest.Prompt = promptFileName
		manifest.DryRun = true
		bd := utils.TokenBreakdown(map[string]string{"analysis": res.Markdown()})
		info(out, "Tokens: prompt≈%d (analysis≈%d, guidance≈%d), max completion %d",
			tokens, bd["analysis"], max(tokens-bd["analysis"], 0), c.MaxTokens)
		if cost, ok := ai.EstimateCostUSD(model, tokens, c.MaxTokens); ok {
			info(out, "Estimated max cost with %s: ~$%.4f", model, cost)
		}
		if anaPrintPrompt {
			fmt.Fprintln(out, fitted)
		}
		if err := manifest.Finish(); err != nil {
			return err
		}
		success(out, "--dry-run: wrote %s, no model call was made", filepath.Join(outDir, promptFileName))
		return nil
	}

	if anaPrintPrompt {
		fmt.Fprintln(out, "\n--print-prompt: sending the following prompt --")
		fmt.Fprintln(out, prompt)
	}

	rt, err := ai.NewRuntime(c.Provider, runtimeConfig(c))
	if err != nil {
		return err
	}
	logger.Info("requesting narration", "provider", c.Provider, "model", model, "prompt_tokens", tokens)
	nres, err := narrate.Narrate(ctx, rt, narrate.Request{
		Prompt:      prompt,
		Model:       model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		PromptLimit: c.PromptLimit,
		OutDir:      outDir,
		ReportName:  c.ReportName,
		HTML:        c.HTMLReport,
		Title:       "Analysis of " + filepath.Base(datasetPath),
		Logger:      logger,
	})
	if err != nil {
		manifest.Notes = append(manifest.Notes, "narration failed: "+err.Error())
		if serr := manifest.Save(); serr != nil {
			logger.Warn("could not save run manifest", "err", serr)
		}
		return explainError(err, c.Provider, model)
	}

	mi := &run.ModelInfo{
		Provider:         c.Provider,
		Name:             nres.Model,
		RequestID:        nres.RequestID,
		PromptTokens:     nres.Usage.PromptTokens,
		CompletionTokens: nres.Usage.CompletionTokens,
		TotalTokens:      nres.Usage.TotalTokens,
		PromptTruncated:  nres.Truncated,
	}
	if cost, ok := ai.EstimateCostUSD(model, nres.Usage.PromptTokens, nres.Usage.CompletionTokens); ok {
		mi.EstimatedCostUSD = cost
	}
	manifest.Model = mi
	manifest.Report = filepath.Base(nres.Path)
	if nres.HTMLPath != "" {
		manifest.HTMLReport = filepath.Base(nres.HTMLPath)
	}
	if err := manifest.Finish(); err != nil {
		return err
	}

	if nres.RequestID != "" {
		info(out, "Request ID: %s", nres.RequestID)
	}
	success(out, "Wrote narration to %s", nres.Path)
	if nres.HTMLPath != "" {
		success(out, "Wrote HTML report to %s", nres.HTMLPath)
	}
	if anaRender {
		return printNarration(out, nres.Text)
	}
	return nil
}

func printNarration(out io.Writer, text string) error {
	if !isTerminal(out) {
		fmt.Fprintln(out, text)
		return nil
	}
	width := 100
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = min(w, 120)
		}
	}
	styledText, err := narrate.RenderTerminal(text, width)
	if err != nil {
		fmt.Fprintln(out, text)
		return nil
	}
	fmt.Fprint(out, styledText)
	return nil
}

// explainError adds a hint for common runtime failures. Timeouts pass
// through unchanged so their message reaches the user as is.
func explainError(err error, provider, model string) error {
	var (
		timeoutErr *ai.TimeoutError
		authErr    *ai.AuthError
		rlErr      *ai.RateLimitError
		nfErr      *ai.ModelNotFoundError
		brErr      *ai.BadRequestError
		qErr       *ai.QuotaExceededError
		sErr       *ai.ServerError
		unreach    *ai.UnreachableError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return timeoutErr
	case errors.Is(err, context.DeadlineExceeded):
		return &ai.TimeoutError{Err: err}
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (AUTOLYSIS_OLLAMA_HOST or config 'ollama_host'): %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check %s or api_key in ~/.autolysis/config.yaml: %w", ai.KeyEnv(provider), err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name with 'autolysis models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try --prompt-limit or a smaller --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return fmt.Errorf("narration failed: %w", err)
	}
}
