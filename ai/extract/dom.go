package extract

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Container lookup order. The first match anywhere in the document wins.
var containerMatchers = []func(*html.Node) bool{
	isElement(atom.Article),
	func(n *html.Node) bool {
		return isElement(atom.Div)(n) && hasClass(n, "article-content")
	},
	isElement(atom.Main),
}

// Subtrees that never contribute visible text.
var invisible = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Head:     true,
	atom.Noscript: true,
	atom.Template: true,
}

// selectContent strips scripts and styles, then returns the text of the
// first article container, or the document's visible text.
func selectContent(doc *html.Node) (string, SourceKind) {
	removeElements(doc, atom.Script, atom.Style)

	for _, match := range containerMatchers {
		if n := findFirst(doc, match); n != nil {
			return collectText(n), SourceArticleBody
		}
	}
	return collectText(doc), SourceFullPage
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == "class" && slices.Contains(strings.Fields(attr.Val), class) {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func removeElements(root *html.Node, atoms ...atom.Atom) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && slices.Contains(atoms, n.DataAtom) {
			doomed = append(doomed, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}
}

// collectText joins the whitespace-separated words of every visible text
// node under n with single spaces.
func collectText(n *html.Node) string {
	var words []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			words = append(words, strings.Fields(n.Data)...)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if invisible[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(words, " ")
}
