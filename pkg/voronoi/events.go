package voronoi

import "sort"

// circleEvent predicts the disappearance of arc from the beachline: at
// sweepline position Y the arc collapses into the Voronoi vertex
// (X, Ycenter). Valid distinguishes a live event from one whose owning
// arc has since changed extent; invalidated events stay physically queued
// until sanitize compacts them.
type circleEvent struct {
	node    *rbNode
	site    Site
	arc     *BeachSection
	x       float64
	y       float64
	ycenter float64
	valid   bool
}

func (c *circleEvent) bindToNode(node *rbNode) { c.node = node }
func (c *circleEvent) getNode() *rbNode        { return c.node }

// eventQueue holds the two sub-queues the driver consumes: the immutable,
// pre-sorted site events (sites popped from the tail yield ascending y,
// ties broken by ascending x) and the dynamic circle-event tree (kept
// ordered by (y, x) ascending so the smallest is always at the front).
type eventQueue struct {
	sites     []Site
	circles   rbTree
	circleLen int // physical entries in circles, valid or not
}

func newEventQueue(sites []Site) *eventQueue {
	sorted := make(sitesByYX, len(sites))
	copy(sorted, sites)
	sort.Sort(sorted)
	return &eventQueue{sites: sorted}
}

func (q *eventQueue) popSite() (Site, bool) {
	if len(q.sites) == 0 {
		return Site{}, false
	}
	s := q.sites[len(q.sites)-1]
	q.sites = q.sites[:len(q.sites)-1]
	return s, true
}

// firstValidCircle walks from the smallest physical entry forward,
// skipping invalidated ones, and returns the first live circle event, or
// nil if none remain.
func (q *eventQueue) firstValidCircle() *circleEvent {
	if q.circles.root == nil {
		return nil
	}
	node := q.circles.getFirst(q.circles.root)
	for node != nil {
		ce := node.value.(*circleEvent)
		if ce.valid {
			return ce
		}
		node = node.next
	}
	return nil
}

// attachCircle inserts ce into the circle-event tree in (y, x) order,
// marks it live, and triggers a sanitize pass bounded by the current
// beachline arc count.
func (q *eventQueue) attachCircle(arc *BeachSection, ce *circleEvent, arcCount int) {
	ce.valid = true
	arc.circleEvent = ce

	var predecessor *rbNode
	node := q.circles.root
	for node != nil {
		nodeValue := node.value.(*circleEvent)
		if ce.y < nodeValue.y || (ce.y == nodeValue.y && ce.x <= nodeValue.x) {
			if node.left != nil {
				node = node.left
				continue
			}
			predecessor = node.previous
			break
		}
		if node.right != nil {
			node = node.right
			continue
		}
		predecessor = node
		break
	}
	q.circles.insertSuccessor(predecessor, ce)
	q.circleLen++
	q.sanitize(arcCount)
}

// detachCircle invalidates arc's outgoing circle event, if any, without
// touching the tree -- the physical entry is reclaimed later by sanitize.
func (q *eventQueue) detachCircle(arc *BeachSection) {
	if arc.circleEvent == nil {
		return
	}
	arc.circleEvent.valid = false
	arc.circleEvent = nil
}

// removeFront physically removes ce, the earliest live circle event (the
// one firstValidCircle returned), once the driver has consumed it.
// Invalidated entries ahead of it stay queued for sanitize.
func (q *eventQueue) removeFront(ce *circleEvent) {
	q.circles.removeNode(ce.node)
	q.circleLen--
}

// sanitize compacts the circle-event tree once it has grown past twice
// the beachline's current arc count, pruning invalidated entries from the
// front (where invalidations accumulate, since the front holds the
// earliest-scheduled and thus longest-pending events). It stops as soon
// as the queue drops back below arcCount or it hits a live entry.
func (q *eventQueue) sanitize(arcCount int) {
	if q.circleLen <= 2*arcCount {
		return
	}
	for q.circleLen >= arcCount && q.circles.root != nil {
		node := q.circles.getFirst(q.circles.root)
		ce := node.value.(*circleEvent)
		if ce.valid {
			break
		}
		q.circles.removeNode(node)
		q.circleLen--
	}
}
