// Package run records what a single analysis run produced.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/autolysis-cli/internal/utils"
	"github.com/google/uuid"
)

const manifestFileName = "run.json"

// Manifest describes the inputs and outputs of one run. It is written next
// to the charts and the narration.
type Manifest struct {
	ID         string     `json:"id"`
	Dataset    string     `json:"dataset"`
	Encoding   string     `json:"encoding,omitempty"`
	Rows       int        `json:"rows"`
	Columns    int        `json:"columns"`
	Charts     []string   `json:"charts"`
	Analysis   string     `json:"analysis,omitempty"`
	Report     string     `json:"report,omitempty"`
	HTMLReport string     `json:"html_report,omitempty"`
	Prompt     string     `json:"prompt,omitempty"`
	Model      *ModelInfo `json:"model,omitempty"`
	DryRun     bool       `json:"dry_run,omitempty"`
	Notes      []string   `json:"notes,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`

	// Not serialized: directory the manifest lives in.
	outDir string
}

// ModelInfo records the language-model call of a run.
type ModelInfo struct {
	Provider         string  `json:"provider"`
	Name             string  `json:"name"`
	RequestID        string  `json:"request_id,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
	PromptTruncated  bool    `json:"prompt_truncated,omitempty"`
}

// New starts a manifest for dataset with output in outDir. Call Save to persist.
func New(dataset, outDir string) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Charts:    []string{},
		StartedAt: time.Now().UTC(),
		outDir:    outDir,
	}
}

// Load reads run.json from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse run manifest: %w", err)
	}
	m.outDir = dir
	return &m, nil
}

// Path returns where the manifest is written.
func (m *Manifest) Path() string { return filepath.Join(m.outDir, manifestFileName) }

// Finish stamps the end time and persists the manifest.
func (m *Manifest) Finish() error {
	m.FinishedAt = time.Now().UTC()
	return m.Save()
}

// Save writes the manifest to disk atomically.
func (m *Manifest) Save() error {
	if m.outDir == "" {
		return errors.New("run output directory not set")
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.Path(), data)
}
