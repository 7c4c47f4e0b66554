package userbot

import (
	"strings"

	"github.com/adpilot/adpilot/internal/store"
)

// inlineMediaPrefix is the legacy convention for embedding a photo in a
// template's text: first line "image:<path>", remaining lines are the
// caption. The explicit Image field takes precedence when set.
const inlineMediaPrefix = "image:"

// ResolveMedia returns the photo path and caption for a template. An empty
// path means text-only.
func ResolveMedia(tpl store.Template) (path, caption string) {
	if tpl.Image != "" {
		return tpl.Image, tpl.Text
	}
	return parseInlineMedia(tpl.Text)
}

func parseInlineMedia(text string) (path, caption string) {
	if !strings.HasPrefix(strings.ToLower(text), inlineMediaPrefix) {
		return "", text
	}

	line, rest, _ := strings.Cut(text, "\n")
	_, rawPath, _ := strings.Cut(line, ":")
	rawPath = strings.TrimSpace(rawPath)
	if rawPath == "" {
		return "", text
	}
	return rawPath, rest
}

// ClampIndex clamps an explicit template index into [0, n-1].
func ClampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
