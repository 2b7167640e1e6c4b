package browser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tbody: true, atom.Thead: true, atom.Tfoot: true, atom.Tr: true, atom.Ul: true,
	atom.Option: true, atom.Caption: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Template: true, atom.Title: true, atom.Iframe: true,
}

// VisibleText approximates the rendered innerText of n: block elements start
// new lines, table cells are tab separated and hidden elements are skipped.
func VisibleText(n *html.Node) string {
	var b strings.Builder

	writeVisible(&b, n)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = collapseSpaces(line)
		if line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}

func writeVisible(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)

		return
	case html.ElementNode:
		if hiddenElements[n.DataAtom] || isHidden(n) {
			return
		}

		if n.DataAtom == atom.Br {
			b.WriteString("\n")

			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteString("\n")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisible(b, c)
	}

	if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
		b.WriteString("\t")
	}

	if block {
		b.WriteString("\n")
	}
}

func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "hidden":
			return true
		case "style":
			style := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		case "type":
			if n.DataAtom == atom.Input && strings.EqualFold(attr.Val, "hidden") {
				return true
			}
		}
	}

	return false
}

// collapseSpaces folds runs of spaces while keeping tab cell separators.
func collapseSpaces(line string) string {
	cells := strings.Split(line, "\t")
	kept := cells[:0]

	for _, cell := range cells {
		cell = strings.Join(strings.Fields(cell), " ")
		if cell != "" {
			kept = append(kept, cell)
		}
	}

	return strings.Join(kept, "\t")
}
