package hxwire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Default attributes the initial response sets on the root element.
const (
	DefaultIDAttr       = "data-wire-id"
	DefaultSnapshotAttr = "data-wire-snapshot"
)

// parseFragment parses markup in a <body> context and returns the single
// top-level element together with every top-level node. Whitespace text and
// comments may surround the element; anything else is a violation.
func parseFragment(markup string) (*html.Node, []*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRootTagMissing, err)
	}

	var root *html.Node
	elements := 0
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			elements++
			root = n
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil, nil, fmt.Errorf("%w: text outside the root element", ErrRootTagMissing)
			}
		}
	}
	if elements != 1 {
		return nil, nil, fmt.Errorf("%w: found %d top-level elements", ErrRootTagMissing, elements)
	}
	return root, nodes, nil
}

// CheckSingleRoot returns ErrRootTagMissing unless markup has exactly one
// top-level element. The client runtime replaces one DOM node per
// component, so every render must satisfy this.
func CheckSingleRoot(markup string) error {
	_, _, err := parseFragment(markup)
	return err
}

// EmbedInHTML writes the fingerprint and memo into the root element of the
// rendered markup, so the client can bootstrap later round trips from the
// markup alone.
func (r *Response) EmbedInHTML(idAttr, snapshotAttr string) error {
	root, nodes, err := parseFragment(r.HTML)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(r.Snapshot())
	if err != nil {
		return fmt.Errorf("hxwire: encode snapshot: %w", err)
	}

	setAttr(root, idAttr, r.Fingerprint.ID)
	setAttr(root, snapshotAttr, string(snapshot))

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return fmt.Errorf("hxwire: render markup: %w", err)
		}
	}
	r.HTML = buf.String()
	return nil
}

// ExtractSnapshot reads the snapshot embedded by an initial response.
func ExtractSnapshot(markup, snapshotAttr string) (*Snapshot, error) {
	root, _, err := parseFragment(markup)
	if err != nil {
		return nil, err
	}
	for _, a := range root.Attr {
		if a.Key != snapshotAttr {
			continue
		}
		var s Snapshot
		if err := json.Unmarshal([]byte(a.Val), &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if s.ServerMemo == nil {
			s.ServerMemo = Memo{}
		}
		return &s, nil
	}
	return nil, fmt.Errorf("%w: no %s attribute on root element", ErrInvalidFormat, snapshotAttr)
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key && n.Attr[i].Namespace == "" {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
