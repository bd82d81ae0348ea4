package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

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

var (
	lineBreaks  = regexp.MustCompile(`</p>|<br>`)
	cellBreaks  = regexp.MustCompile(`</td>\s*<td[^<>]*>`)
	rowBreaks   = regexp.MustCompile(`</tr>`)
	anchorTags  = regexp.MustCompile(`(?s)<a[^<>]*\shref=([^<> ]+)[^<>]*>([^<>]*)</\s*a\s*>`)
	hrefTags    = regexp.MustCompile(`(?s)<\w[^<>]*\shref=([^<> ]+)[^<>]*>`)
	srcTags     = regexp.MustCompile(`(?s)<\w[^<>]*\ssrc=([^<> ]+)[^<>]*>`)
	anyTag      = regexp.MustCompile(`</?\w+[^<>]*>`)
	linkToken   = regexp.MustCompile(`['"]?http\S+?['"]?(\s+|$)`)
	quoteTrim   = regexp.MustCompile(`^['"]|['"]$`)
)

// Flatten converts a minimal HTML fragment into somewhat readable
// text: paragraph and table structure become newlines and tabs,
// anchors become "description url", remaining tags are stripped and
// the common entities decoded. The fragments are frequently too
// broken for a real parser, which is why this is plain substitution.
func Flatten(fragment string) string {
	s := fragment
	s = lineBreaks.ReplaceAllString(s, "\n")
	s = cellBreaks.ReplaceAllString(s, "\t")
	s = rowBreaks.ReplaceAllString(s, "\n")
	// description first, then link
	s = anchorTags.ReplaceAllString(s, "$2 $1 ")
	s = hrefTags.ReplaceAllString(s, "$1 ")
	s = srcTags.ReplaceAllString(s, "$1 ")
	s = anyTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = collapseRepeatedLinks(s)
	return s
}

// collapseRepeatedLinks removes runs of the same URL repeated with
// only whitespace or quoting between occurrences, keeping one copy.
func collapseRepeatedLinks(s string) string {
	var out strings.Builder
	pos := 0
	prev := ""
	for _, loc := range linkToken.FindAllStringIndex(s, -1) {
		token := s[loc[0]:loc[1]]
		link := quoteTrim.ReplaceAllString(strings.TrimSpace(token), "")

		repeat := pos == loc[0] && link != "" && link == prev
		if !repeat {
			out.WriteString(s[pos:loc[0]])
			out.WriteString(link)
			if strings.TrimSpace(token) != token {
				out.WriteString(" ")
			}
		}
		pos = loc[1]
		prev = link
	}
	out.WriteString(s[pos:])
	return out.String()
}
