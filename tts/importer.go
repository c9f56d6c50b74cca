package tts

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/unicode"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// ImportText reads a UTF-8 text file to speak. It returns false when the
// file cannot be read, is not valid UTF-8 or is empty; callers keep
// whatever text they had. Markdown files are reduced to their prose.
func ImportText(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("import failed", "path", path, "err", err)
		return "", false
	}
	content, err := decodeText(data)
	if err != nil {
		log.Debug("import failed", "path", path, "err", err)
		return "", false
	}
	if isMarkdown(path) {
		content = MarkdownToText(content)
	}
	if content == "" {
		log.Debug("import skipped empty file", "path", path)
		return "", false
	}
	return content, true
}

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkdn":
		return true
	}
	return false
}

// MarkdownToText returns the speakable text of a markdown document:
// code blocks, raw HTML and bare URLs are dropped and each block ends
// up on its own paragraph.
func MarkdownToText(source string) string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.AutoLink, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				switch {
				case node.HardLineBreak():
					buf.WriteByte('\n')
				case node.SoftLineBreak():
					buf.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	out := blankLines.ReplaceAllString(buf.String(), "\n\n")
	return strings.TrimSpace(out)
}
