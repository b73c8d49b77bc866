// pkg/physics/quadtree.go
package physics

const (
	// MaxDepth is the deepest level a node may split to; the root is level 0.
	MaxDepth = 5
	// MaxObjectsPerNode is how many colliders a node holds before splitting.
	MaxObjectsPerNode = 10
)

// Quadrant identifies one of a node's four children
type Quadrant int

const (
	QuadrantNone Quadrant = iota - 1
	QuadrantNE
	QuadrantNW
	QuadrantSW
	QuadrantSE
)

var quadrants = [4]Quadrant{QuadrantNE, QuadrantNW, QuadrantSW, QuadrantSE}

func (q Quadrant) String() string {
	switch q {
	case QuadrantNE:
		return "NE"
	case QuadrantNW:
		return "NW"
	case QuadrantSW:
		return "SW"
	case QuadrantSE:
		return "SE"
	}
	return "none"
}

// QuadTree is a region quadtree over collider bounding boxes. Each collider
// is stored in the deepest node whose region fully contains its box, down to
// MaxDepth. The tree is meant to be cleared and rebuilt every tick.
//
// A QuadTree is not safe for concurrent use.
type QuadTree struct {
	Boundary Rect
	Level    int
	Objects  []Collider
	Nodes    [4]*QuadTree // indexed by Quadrant, nil until split

	overflows *int
}

// NewQuadTree creates an empty root node covering boundary
func NewQuadTree(boundary Rect) *QuadTree {
	return &QuadTree{
		Boundary:  boundary,
		Objects:   make([]Collider, 0, MaxObjectsPerNode+1),
		overflows: new(int),
	}
}

// Divided reports whether the node has been split
func (qt *QuadTree) Divided() bool {
	return qt.Nodes[0] != nil
}

// Clear drops every collider and child node, leaving an empty root.
// Overflow diagnostics are reset too.
func (qt *QuadTree) Clear() {
	for i := range qt.Objects {
		qt.Objects[i] = nil
	}
	qt.Objects = qt.Objects[:0]
	for i, node := range qt.Nodes {
		if node != nil {
			node.Clear()
			qt.Nodes[i] = nil
		}
	}
	*qt.overflows = 0
}

// split creates the four child regions
func (qt *QuadTree) split() {
	for _, q := range quadrants {
		qt.Nodes[q] = &QuadTree{
			Boundary:  qt.Boundary.Quarter(q),
			Level:     qt.Level + 1,
			Objects:   make([]Collider, 0, MaxObjectsPerNode+1),
			overflows: qt.overflows,
		}
	}
}

// classify returns the child quadrant that fully contains box, or
// QuadrantNone when the box leaves the node or reaches a midline. The
// node's outer edges are closed but its midlines are not, so boxes filed
// in sibling children never touch.
func (qt *QuadTree) classify(box AABB) Quadrant {
	if !qt.Boundary.Contains(box) {
		return QuadrantNone
	}
	midX := qt.Boundary.X + qt.Boundary.Width/2
	midY := qt.Boundary.Y + qt.Boundary.Height/2

	west, east := box.Max.X < midX, box.Min.X > midX
	north, south := box.Max.Y < midY, box.Min.Y > midY
	switch {
	case north && east:
		return QuadrantNE
	case north && west:
		return QuadrantNW
	case south && west:
		return QuadrantSW
	case south && east:
		return QuadrantSE
	}
	return QuadrantNone
}

// Insert files c at the deepest node that fully contains its bounding box.
// Colliders outside the root boundary stay at the root.
func (qt *QuadTree) Insert(c Collider) {
	if qt.Divided() {
		if q := qt.classify(c.Bounds()); q != QuadrantNone {
			qt.Nodes[q].Insert(c)
			return
		}
	}

	qt.Objects = append(qt.Objects, c)
	if len(qt.Objects) <= MaxObjectsPerNode {
		return
	}
	if qt.Level >= MaxDepth {
		*qt.overflows++
		return
	}

	if !qt.Divided() {
		qt.split()
	}
	qt.refile()
}

// refile pushes locally held colliders into children where they fit,
// working from the back so removals do not disturb unvisited entries.
func (qt *QuadTree) refile() {
	for i := len(qt.Objects) - 1; i >= 0; i-- {
		obj := qt.Objects[i]
		q := qt.classify(obj.Bounds())
		if q == QuadrantNone {
			continue
		}
		last := len(qt.Objects) - 1
		qt.Objects[i] = qt.Objects[last]
		qt.Objects[last] = nil
		qt.Objects = qt.Objects[:last]
		qt.Nodes[q].Insert(obj)
	}
}

// Retrieve returns every collider that could overlap query: the colliders
// held by each node on the path from the root down to the deepest child
// fully containing the query's box. The result is a superset of the true
// overlaps along that path and never contains query itself.
func (qt *QuadTree) Retrieve(query Collider) []Collider {
	return qt.retrieve(query, query.Bounds(), nil)
}

func (qt *QuadTree) retrieve(query Collider, box AABB, found []Collider) []Collider {
	if qt.Divided() {
		if q := qt.classify(box); q != QuadrantNone {
			found = qt.Nodes[q].retrieve(query, box, found)
		}
	}
	for _, obj := range qt.Objects {
		if obj != query {
			found = append(found, obj)
		}
	}
	return found
}

// Len returns the number of colliders stored in the subtree
func (qt *QuadTree) Len() int {
	n := len(qt.Objects)
	for _, node := range qt.Nodes {
		if node != nil {
			n += node.Len()
		}
	}
	return n
}

// NodeCount returns the number of nodes in the subtree, including qt
func (qt *QuadTree) NodeCount() int {
	n := 1
	for _, node := range qt.Nodes {
		if node != nil {
			n += node.NodeCount()
		}
	}
	return n
}

// MaxDepthReached returns the deepest level present in the subtree
func (qt *QuadTree) MaxDepthReached() int {
	depth := qt.Level
	for _, node := range qt.Nodes {
		if node != nil {
			depth = max(depth, node.MaxDepthReached())
		}
	}
	return depth
}

// Overflows counts insertions that left a MaxDepth node above
// MaxObjectsPerNode since the last Clear. A steadily non-zero value means
// the constants need retuning; no collider is ever dropped.
func (qt *QuadTree) Overflows() int {
	return *qt.overflows
}

// Find returns the node currently holding c, or nil
func (qt *QuadTree) Find(c Collider) *QuadTree {
	for _, obj := range qt.Objects {
		if obj == c {
			return qt
		}
	}
	for _, node := range qt.Nodes {
		if node != nil {
			if found := node.Find(c); found != nil {
				return found
			}
		}
	}
	return nil
}
