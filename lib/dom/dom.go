// Package dom holds the handful of tree operations the hydrator needs on
// top of golang.org/x/net/html.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a full HTML document.
func Parse(markup string) (*html.Node, error) {
	return html.Parse(strings.NewReader(markup))
}

// ParseFragment parses markup as the children of context. A nil context
// parses as if inside a <div>.
func ParseFragment(markup string, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	return html.ParseFragment(strings.NewReader(markup), context)
}

// ByID returns the first element under root whose id attribute equals id.
func ByID(root *html.Node, id string) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && Attr(root, "id") == id {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := ByID(c, id); n != nil {
			return n
		}
	}
	return nil
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
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

// Render serializes n and its descendants.
func Render(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// HasChildren reports whether n has any child nodes.
func HasChildren(n *html.Node) bool {
	return n != nil && n.FirstChild != nil
}

// Clear detaches every child of n.
func Clear(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// SetInnerHTML replaces the children of n with the parsed markup.
func SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := ParseFragment(markup, n)
	if err != nil {
		return err
	}
	Clear(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// Normalize round-trips markup through the parser as children of context,
// so it can be compared with InnerHTML of an existing element.
func Normalize(markup string, context *html.Node) (string, error) {
	nodes, err := ParseFragment(markup, context)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range nodes {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
