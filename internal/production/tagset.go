package production

// tagCollector is a Visitor that records the distinct set of tags present
// in a tree. Using a set rather than a multiset is the invariant that
// keeps impedance counters meaningful: a tag is incremented once per
// query, regardless of how many nodes in that query carry it.
type tagCollector struct {
	seen map[Tag]struct{}
}

func (c *tagCollector) Enter(p Production) {
	c.seen[p.Tag()] = struct{}{}
}

func (c *tagCollector) Exit(Production) {}

// TagSet returns the distinct set of variant tags present in the tree
// rooted at p.
func TagSet(p Production) map[Tag]struct{} {
	c := &tagCollector{seen: make(map[Tag]struct{})}
	Walk(p, c)

	return c.seen
}

// Count returns the number of nodes in the tree rooted at p and the
// maximum level (depth from root) observed.
func Count(p Production) (nodes int, maxLevel int) {
	Walk(p, visitorFunc{
		enter: func(n Production) {
			nodes++
			if n.Level() > maxLevel {
				maxLevel = n.Level()
			}
		},
	})

	return nodes, maxLevel
}

// SumRetries returns the sum of Retries() across every node in the tree
// rooted at p.
func SumRetries(p Production) int {
	var total int

	Walk(p, visitorFunc{
		enter: func(n Production) { total += n.Retries() },
	})

	return total
}

// visitorFunc adapts plain enter/exit closures to the Visitor interface
// for the small one-off traversals in this file.
type visitorFunc struct {
	enter func(Production)
	exit  func(Production)
}

func (v visitorFunc) Enter(p Production) {
	if v.enter != nil {
		v.enter(p)
	}
}

func (v visitorFunc) Exit(p Production) {
	if v.exit != nil {
		v.exit(p)
	}
}
