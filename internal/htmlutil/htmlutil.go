package htmlutil

import (
	"bytes"
	"quizstats/internal/textutil"
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
	// text nodes on either side of a <br> would otherwise be glued together
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteString(" ")
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText returns the text content of the first node in the selection
// with non-printable characters removed, trimmed and with inner whitespace
// collapsed.
func CleanText(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	text := GetText(sel.Nodes[0])
	return textutil.Squash(removeNonPrintable(text))
}

// OuterHtml renders the first node in the selection, an empty selection
// renders to an empty string.
func OuterHtml(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	var buffer bytes.Buffer
	err := html.Render(&buffer, sel.Nodes[0])
	if err != nil {
		return ""
	}
	return buffer.String()
}
