package summary

import (
	"fmt"
	"strings"
)

const promptHeading = "## Current Context"

// Render formats items as a prompt block using the default excerpt length.
// An empty list renders as the empty string, meaning there is nothing to show.
func Render(items []Item) string {
	return RenderWithExcerpt(items, DefaultPromptExcerptChars)
}

// RenderWithExcerpt formats items, truncating file content to excerptChars.
// Items appear in list order; kinds without a section are skipped.
func RenderWithExcerpt(items []Item, excerptChars int) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(promptHeading)
	b.WriteString("\n")

	for _, item := range items {
		switch item.Kind {
		case KindFile:
			excerpt := truncate(item.Content, excerptChars)
			fence := fenceFor(excerpt)
			fmt.Fprintf(&b, "\n### Active File: %s\n%s\n%s\n%s\n", item.Title, fence, excerpt, fence)
		case KindProject:
			fmt.Fprintf(&b, "\n### %s\n%s\n", item.Title, item.Content)
		}
	}

	return b.String()
}

// fenceFor returns a backtick fence longer than any backtick run in content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}
