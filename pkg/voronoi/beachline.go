package voronoi

import "math"

// BeachSection is one parabolic arc currently on the beachline. Its Edge
// is the one whose right side is bounded by this arc's left break-point --
// the edge being traced out as the sweepline descends. CircleEvent, if
// set, is the event predicting this arc's collapse; it is cleared whenever
// the arc's extent changes.
type BeachSection struct {
	node        *rbNode
	site        Site
	circleEvent *circleEvent
	edge        *Edge
}

func (b *BeachSection) bindToNode(node *rbNode) { b.node = node }
func (b *BeachSection) getNode() *rbNode        { return b.node }

// beachline is the x-ordered sequence of parabolic arcs below the
// sweepline, backed by an rbTree so that locate is O(log n) while
// next/prev stay O(1) via the tree's neighbor links.
type beachline struct {
	tree rbTree
	size int
}

// locate finds the arc(s) adjacent to the insertion point x on the
// directrix d. It returns the same arc twice when x falls in the interior
// of a single arc (a split is needed), the arc to either side when x lands
// exactly on an existing break-point (no split, insert between), or a nil
// left/right when there is no beachline yet or x is past an end.
func (b *beachline) locate(x, directrix float64) (left, right *BeachSection) {
	node := b.tree.root
	var lNode, rNode *rbNode
	for node != nil {
		arc := node.value.(*BeachSection)
		dxl := leftBreakPoint(arc, directrix) - x
		if dxl > epsilon {
			node = node.left
			continue
		}
		dxr := x - rightBreakPoint(arc, directrix)
		if dxr > epsilon {
			if node.right == nil {
				lNode = node
				break
			}
			node = node.right
			continue
		}
		switch {
		case dxl > -epsilon:
			lNode = node.previous
			rNode = node
		case dxr > -epsilon:
			lNode = node
			rNode = node.next
		default:
			lNode, rNode = node, node
		}
		break
	}
	if lNode != nil {
		left = lNode.value.(*BeachSection)
	}
	if rNode != nil {
		right = rNode.value.(*BeachSection)
	}
	return left, right
}

// insertAfter attaches newArc as the in-order successor of pred, or as the
// sole/first arc when pred is nil.
func (b *beachline) insertAfter(pred, newArc *BeachSection) {
	if pred == nil {
		b.tree.insertSuccessor(nil, newArc)
	} else {
		b.tree.insertSuccessor(pred.node, newArc)
	}
	b.size++
}

// remove detaches arc from the beachline.
func (b *beachline) remove(arc *BeachSection) {
	b.tree.removeNode(arc.node)
	b.size--
}

// count returns the number of arcs currently on the beachline.
func (b *beachline) count() int {
	return b.size
}

func (b *beachline) next(arc *BeachSection) *BeachSection {
	if arc.node.next == nil {
		return nil
	}
	return arc.node.next.value.(*BeachSection)
}

func (b *beachline) prev(arc *BeachSection) *BeachSection {
	if arc.node.previous == nil {
		return nil
	}
	return arc.node.previous.value.(*BeachSection)
}

func (b *beachline) clear() {
	b.tree.clear()
	b.size = 0
}

// leftBreakPoint returns the x-coordinate where arc's parabola meets its
// left neighbor's, at the given directrix. The algebraic form is taken
// verbatim from the reference port to minimize floating-point cancellation
// error.
func leftBreakPoint(arc *BeachSection, directrix float64) float64 {
	site := arc.site
	rfocx, rfocy := site.X, site.Y
	pby2 := rfocy - directrix
	if pby2 == 0 {
		return rfocx
	}

	lNode := arc.node.previous
	if lNode == nil {
		return math.Inf(-1)
	}
	lsite := lNode.value.(*BeachSection).site
	lfocx, lfocy := lsite.X, lsite.Y
	plby2 := lfocy - directrix
	if plby2 == 0 {
		return lfocx
	}

	hl := lfocx - rfocx
	aby2 := 1/pby2 - 1/plby2
	bb := hl / plby2
	if aby2 != 0 {
		return (-bb+math.Sqrt(bb*bb-2*aby2*(hl*hl/(-2*plby2)-lfocy+plby2/2+rfocy-pby2/2)))/aby2 + rfocx
	}
	return (rfocx + lfocx) / 2
}

// rightBreakPoint returns the x-coordinate where arc's parabola meets its
// right neighbor's; it is simply the left break-point of that neighbor.
func rightBreakPoint(arc *BeachSection, directrix float64) float64 {
	if rNode := arc.node.next; rNode != nil {
		return leftBreakPoint(rNode.value.(*BeachSection), directrix)
	}
	if arc.site.Y == directrix {
		return arc.site.X
	}
	return math.Inf(1)
}
