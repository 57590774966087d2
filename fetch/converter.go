package fetch

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// excessiveLinesRe collapses runs of blank lines in converted markdown.
var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// chromeTags are non-content elements dropped by the fallback extractor.
var chromeTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true,
	"header": true, "footer": true, "aside": true, "iframe": true,
	"object": true, "embed": true, "form": true,
}

// ConvertResult contains the result of HTML to markdown conversion.
type ConvertResult struct {
	Title    string
	Markdown string
}

// Converter converts fetched HTML pages to markdown. Readability-style
// article extraction runs first; when it yields nothing (non-article
// pages, parse failures) a simpler chrome-stripping pass over the DOM is
// used instead.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a new HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Converter{converter: converter}
}

// Convert transforms HTML content to markdown. pageURL is used to
// resolve relative links during article extraction; it may be empty.
func (c *Converter) Convert(htmlContent []byte, pageURL string) (*ConvertResult, error) {
	title, content := extractArticle(htmlContent, pageURL)

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return nil, err
	}

	markdown = cleanMarkdown(markdown)

	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	return &ConvertResult{
		Title:    title,
		Markdown: markdown,
	}, nil
}

// extractArticle returns the page title and the HTML of its main
// content area.
func extractArticle(content []byte, pageURL string) (title, body string) {
	var u *url.URL
	if pageURL != "" {
		if parsed, err := url.Parse(pageURL); err == nil {
			u = parsed
		}
	}

	if u != nil {
		if article, err := readability.FromReader(bytes.NewReader(content), u); err == nil {
			if strings.TrimSpace(article.Content) != "" {
				return article.Title, article.Content
			}
		}
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", string(content)
	}

	title = findTitle(doc)
	stripChrome(doc)

	if body := findElement(doc, "main"); body != nil {
		return title, renderNode(body)
	}
	if body := findElement(doc, "article"); body != nil {
		return title, renderNode(body)
	}
	if body := findElement(doc, "body"); body != nil {
		return title, renderNode(body)
	}
	return title, string(content)
}

// findTitle returns the text of the first <title> element.
func findTitle(doc *html.Node) string {
	node := findElement(doc, "title")
	if node == nil || node.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(node.FirstChild.Data)
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// stripChrome removes navigation and scripting elements in place.
func stripChrome(n *html.Node) {
	var toRemove []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && chromeTags[c.Data] {
			toRemove = append(toRemove, c)
			continue
		}
		stripChrome(c)
	}
	for _, node := range toRemove {
		n.RemoveChild(node)
	}
}

// renderNode renders a node and its children back to an HTML string.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

// cleanMarkdown trims trailing whitespace and collapses blank-line runs.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractMarkdownTitle extracts the first H1 heading from markdown.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
