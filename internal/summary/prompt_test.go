package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "", Render(nil))
	assert.Equal(t, "", Render([]Item{}))
}

func TestRender_SingleFile(t *testing.T) {
	out := Render([]Item{{
		ID:        "file:greeting.txt",
		Kind:      KindFile,
		Title:     "greeting.txt",
		Content:   "hello",
		Relevance: RelevanceActiveFile,
	}})

	assert.Equal(t, "## Current Context\n\n### Active File: greeting.txt\n```\nhello\n```\n", out)
}

func TestRender_FileExcerptTruncated(t *testing.T) {
	content := strings.Repeat("x", 1000)
	out := Render([]Item{{Kind: KindFile, Title: "big.txt", Content: content}})

	assert.Contains(t, out, "```\n"+strings.Repeat("x", 400)+"\n```")
	assert.NotContains(t, out, strings.Repeat("x", 401))

	out = RenderWithExcerpt([]Item{{Kind: KindFile, Title: "big.txt", Content: content}}, 10)
	assert.Contains(t, out, "```\n"+strings.Repeat("x", 10)+"\n```")
}

func TestRender_OrderAndKinds(t *testing.T) {
	items := []Item{
		{Kind: KindFile, Title: "main.go", Content: "package main"},
		{Kind: KindError, Title: "oops", Content: "should not render"},
		{Kind: KindProject, Title: "Project Files", Content: "main.go (go, 12 chars)\nREADME.md (md, 4 chars)"},
	}

	out := Render(items)

	assert.True(t, strings.HasPrefix(out, "## Current Context\n"))
	assert.NotContains(t, out, "should not render")
	assert.Contains(t, out, "### Project Files\nmain.go (go, 12 chars)\nREADME.md (md, 4 chars)\n")
	assert.Less(t, strings.Index(out, "### Active File: main.go"), strings.Index(out, "### Project Files"))
}

func TestRender_FenceLongerThanContentBackticks(t *testing.T) {
	out := Render([]Item{{Kind: KindFile, Title: "README.md", Content: "```go\nx := 1\n```"}})

	assert.Contains(t, out, "````\n```go\nx := 1\n```\n````\n")
}

func TestRender_MatchesExtractorOutput(t *testing.T) {
	snap := snapshotOf("a.go", "a.go", "package a")
	out := Render(NewExtractor(ExtractorOptions{}).Extract(snap))

	assert.Equal(t,
		"## Current Context\n\n### Active File: a.go\n```\npackage a\n```\n\n### Project Files\na.go (go, 9 chars)\n",
		out)
}
