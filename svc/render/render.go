package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	policy = bluemonday.UGCPolicy()
)

// Markdown renders and sanitizes untrusted markdown.
func Markdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}

func Pre(src []byte) string {
	return "<pre>" + html.EscapeString(string(src)) + "</pre>"
}

func Page(title, bodyHTML string) string {
	return fmt.Sprintf(
		"<!doctype html><html><head><meta charset=%q><title>%s</title></head><body>%s</body></html>",
		"utf-8", html.EscapeString(title), bodyHTML,
	)
}
