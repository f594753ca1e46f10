// Package narrate turns an analysis into a language-model prompt and writes
// the model's narration to disk.
package narrate

import (
	"strings"

	"github.com/KaramelBytes/autolysis-cli/internal/ai"
	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
)

// SystemPrompt frames every narration request.
const SystemPrompt = "You are a data analysis expert."

var keyPrompts = []string{
	"Identify anomalies or surprising patterns from the analysis.",
	"Suggest potential business decisions or insights based on clustering.",
	"Explain why certain correlations are strong or weak.",
	"Hypothesize causes for missing values and how to handle them.",
	"Provide recommendations for future analysis or data collection.",
}

var additionalPrompts = []string{
	"What are the key trends or patterns in the dataset?",
	"Summarize the structure and content of this dataset.",
	"Suggest methods to handle missing data in this dataset.",
	"Offer suggestions for enhancing the dataset's quality.",
}

// BuildPrompt formats the analysis and the chart list into the user prompt.
func BuildPrompt(res *analysis.Result, charts []string) string {
	var b strings.Builder
	b.WriteString("Create a README.md narrating this analysis:\n\n")
	b.WriteString(res.Markdown())
	b.WriteString("\n[CHARTS]\n")
	if len(charts) == 0 {
		b.WriteString("No charts were rendered.\n")
	} else {
		b.WriteString("Attach these charts: ")
		b.WriteString(strings.Join(charts, ", "))
		b.WriteString(".\n")
	}
	b.WriteString("\nKey prompts to use:\n")
	writeBullets(&b, keyPrompts)
	b.WriteString("\nAdditional Prompts:\n")
	writeBullets(&b, additionalPrompts)
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, s := range items {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
}

// Messages wraps prompt into the chat exchange sent to the model.
func Messages(prompt string) []ai.Message {
	return []ai.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: prompt},
	}
}
