package source

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DefaultProgressClass is the CSS class of the element holding the percentage.
const DefaultProgressClass = "progress-text"

// Extractor pulls a progress fraction out of a response body.
type Extractor func(body []byte) (float64, error)

// ClassTextExtractor returns an Extractor that reads the text of the first
// element carrying the given CSS class and parses it as a percentage.
func ClassTextExtractor(class string) Extractor {
	return func(body []byte) (float64, error) {
		doc, err := html.Parse(bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("%w: failed to parse html: %v", ErrNotFound, err)
		}

		node := findByClass(doc, class)
		if node == nil {
			return 0, fmt.Errorf("%w: no element with class %q", ErrNotFound, class)
		}

		return ParsePercent(textContent(node))
	}
}

// ParsePercent converts text such as " 42.5 % " into the fraction 0.425.
func ParsePercent(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if raw == "" {
		return 0, fmt.Errorf("%w: empty percentage", ErrValue)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrValue, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: %q is outside 0-100%%", ErrValue, s)
	}
	return v / 100, nil
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(attr.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
