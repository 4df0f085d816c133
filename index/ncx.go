package index

// Absent marks NCX field missing from the entry.
const Absent = -1

// NCXNode is navigation point decoded from NCX index.
type NCXNode struct {
	Index        int
	Offset       int
	Size         int
	Label        string
	HeadingLevel int
	// Pos is (fragment id, offset) pair for KF8 books.
	Pos        []uint32
	Parent     int
	FirstChild int
	LastChild  int
	Children   []NCXNode
}

func field(e Entry, tag uint32) int {
	if v, ok := e.First(tag); ok {
		return int(v)
	}
	return Absent
}

// ReadNCX decodes NCX index and returns top level navigation points with
// their children attached.
func ReadNCX(l Loader, at int) ([]NCXNode, error) {
	t, err := Read(l, at)
	if err != nil {
		return nil, err
	}

	items := make([]NCXNode, 0, len(t.Entries))
	for i, e := range t.Entries {
		n := NCXNode{
			Index:        i,
			Offset:       field(e, 1),
			Size:         field(e, 2),
			HeadingLevel: field(e, 4),
			Pos:          e.Tags[6],
			Parent:       field(e, 21),
			FirstChild:   field(e, 22),
			LastChild:    field(e, 23),
		}
		if key, ok := e.First(3); ok {
			n.Label = t.Label(key)
		}
		items = append(items, n)
	}

	var (
		visiting = make(map[int]bool)
		attach   func(n NCXNode) NCXNode
	)
	attach = func(n NCXNode) NCXNode {
		if n.FirstChild == Absent || visiting[n.Index] {
			return n
		}
		visiting[n.Index] = true
		defer delete(visiting, n.Index)
		for _, c := range items {
			if c.Parent == n.Index && !visiting[c.Index] {
				n.Children = append(n.Children, attach(c))
			}
		}
		return n
	}

	var roots []NCXNode
	for _, n := range items {
		if n.HeadingLevel == 0 {
			roots = append(roots, attach(n))
		}
	}
	return roots, nil
}
