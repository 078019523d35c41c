package production

import (
	"io"
	"strings"
)

// Node is a reference Production implementation. Real grammar packages are
// expected to embed something equivalent; Node exists so this module's own
// tests (and C7's typed builder) have a concrete tree to build and walk.
type Node struct {
	tag      Tag
	level    int
	retries  int
	text     string
	children []Production
}

// NewNode builds a leaf Node with the given tag, level, and literal text.
func NewNode(tag Tag, level int, text string) *Node {
	return &Node{tag: tag, level: level, text: text}
}

// WithChildren attaches children to n and returns n for chaining.
func (n *Node) WithChildren(children ...Production) *Node {
	n.children = children

	return n
}

// BumpRetries increments the node's retry counter, mirroring what a
// producer does each time it re-attempts construction of this node.
func (n *Node) BumpRetries() {
	n.retries++
}

func (n *Node) Tag() Tag                  { return n.tag }
func (n *Node) Level() int                { return n.level }
func (n *Node) Retries() int              { return n.retries }
func (n *Node) Children() []Production    { return n.children }

func (n *Node) Accept(v Visitor) {
	Walk(n, v)
}

func (n *Node) WriteTo(w io.Writer) (int64, error) {
	written, err := io.WriteString(w, n.text)

	for _, child := range n.children {
		if err != nil {
			break
		}

		var childWritten int64

		childWritten, err = child.WriteTo(w)
		written += int(childWritten)
	}

	return int64(written), err
}

// Text renders the node (and its subtree) to a string. Convenience wrapper
// around WriteTo for callers that only need the serialized query text, such
// as the syntax-error corpus.
func Text(p Production) string {
	var sb strings.Builder

	_, _ = p.WriteTo(&sb)

	return sb.String()
}
