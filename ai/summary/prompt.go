package summary

import (
	"fmt"
	"strings"

	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/store"
)

const (
	hebrewInstruction   = "Translate the answer to Hebrew, except Brands or technology terms and definitions. "
	fullPageInstruction = "Remove any non-article elements like ads or navigation links. "
	summaryInstruction  = "Please provide a concise summary of the following article, focusing on the main points, arguments, and conclusions. " +
		"The summary should be clear, informative, and no longer than %d words. " +
		"Replace bullet points with dashes (-), and use spaces to indicate indentation. "

	respondSeparator = "\n\n\n\n\n\n"
)

// BuildSummaryPrompt assembles the instructions for content followed by its text.
func BuildSummaryPrompt(content *extract.ExtractedContent, cfg *store.BotConfig) string {
	var b strings.Builder

	if cfg.Language == store.LanguageHebrew {
		b.WriteString(hebrewInstruction)
	}

	b.WriteString(fmt.Sprintf("Summarize this text extracted from a %s. ", framing(content.Kind)))
	if content.Kind == extract.SourceFullPage {
		b.WriteString(fullPageInstruction)
	}
	b.WriteString(fmt.Sprintf(summaryInstruction, cfg.WordLimit))

	b.WriteString("\n\n")
	b.WriteString(content.Text)
	return b.String()
}

// BuildRespondPrompt places the question after the stored article text.
func BuildRespondPrompt(lastArticle, question string) string {
	return lastArticle + respondSeparator + question + "\n\n"
}

func framing(kind extract.SourceKind) string {
	if kind == extract.SourceFullPage {
		return "webpage"
	}
	return "article"
}
