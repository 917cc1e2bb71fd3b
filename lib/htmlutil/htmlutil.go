package htmlutil

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var whitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses the text content of a node into a single trimmed line.
func CleanText(node *html.Node) string {
	text := whitespace.ReplaceAllString(GetText(node), " ")
	return strings.TrimSpace(removeNonPrintable(text))
}

type Anchor struct {
	Name string
	Href string
}

// Param returns the value of a `key=value` segment in the anchor's path or
// query, the site puts most parameters in the path.
func (a Anchor) Param(key string) string {
	link, err := url.Parse(a.Href)
	if err != nil {
		return ""
	}
	if v := link.Query().Get(key); v != "" {
		return v
	}
	for _, segment := range strings.Split(link.Path, "/") {
		k, v, ok := strings.Cut(segment, "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}

func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}
		if _, err := url.Parse(href); err != nil {
			continue
		}
		anchors = append(anchors, Anchor{
			Name: CleanText(n),
			Href: href,
		})
	}
	return anchors
}

// InputValue returns the trimmed value of the first input named `name`.
func InputValue(doc *goquery.Document, name string) (string, bool) {
	sel := doc.Find(fmt.Sprintf(`input[name="%s"]`, name)).First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.AttrOr("value", "")), true
}
