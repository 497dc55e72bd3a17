package render

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Artifact content types produced by the artifacts tool.
const (
	TypeCode     = "application/vnd.ant.code"
	TypeMarkdown = "text/markdown"
	TypeHTML     = "text/html"
	TypeSVG      = "image/svg+xml"
	TypeMermaid  = "application/vnd.ant.mermaid"
	TypeReact    = "application/vnd.ant.react"
	TypePlain    = "text/plain"
)

var typeExtensions = map[string]string{
	TypeMarkdown: "md",
	TypeHTML:     "html",
	TypeSVG:      "svg",
	TypeMermaid:  "mmd",
	TypeReact:    "jsx",
	TypePlain:    "txt",
}

var typeFences = map[string]string{
	TypeMarkdown: "markdown",
	TypeHTML:     "html",
	TypeSVG:      "xml",
	TypeMermaid:  "mermaid",
	TypeReact:    "jsx",
}

// Extension returns the file extension for an artifact type. Code artifacts use the extension
// chroma associates with their language.
func Extension(artifactType, language string) string {
	if ext, ok := typeExtensions[artifactType]; ok {
		return ext
	}
	if artifactType == TypeCode && language != "" {
		if lexer := lexers.Get(language); lexer != nil {
			for _, pattern := range lexer.Config().Filenames {
				if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.ContainsAny(ext, "*?[") {
					return ext
				}
			}
		}
		return SanitizeFileName(strings.ToLower(language))
	}
	return "txt"
}

// FenceLanguage returns the info string for a fenced code block holding the artifact.
func FenceLanguage(artifactType, language string) string {
	if fence, ok := typeFences[artifactType]; ok {
		return fence
	}
	if language == "" {
		return ""
	}
	if lexer := lexers.Get(language); lexer != nil {
		if aliases := lexer.Config().Aliases; len(aliases) > 0 {
			return aliases[0]
		}
	}
	return strings.ToLower(language)
}

// htmlTitle returns the document title of an HTML artifact, or "".
func htmlTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// htmlToMarkdown converts an HTML artifact for inline embedding.
func htmlToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	return converter.ConvertString(html)
}
