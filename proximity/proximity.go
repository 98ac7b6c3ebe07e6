// Package proximity enumerates, given per-query-term sorted position
// lists, combinations of chosen positions in non-decreasing order of
// total proximity cost. It is the de-stubbed realization of the
// BestProximity iterator: the original source left the enumeration
// itself unimplemented, its tests encoding the intended order.
package proximity

import (
	"container/heap"
	"sort"

	"github.com/kestrelsearch/kestrel"
)

// maxCost is the ceiling on any single pairwise cost.
const maxCost = 8

// PairCost returns the proximity cost between p, chosen for term i,
// and q, chosen for term i+1:
//
//   - different attribute:        8
//   - q == p:                     0
//   - q == p+1:                   1
//   - 2 <= q-p <= 7:               q-p
//   - q-p >= 8:                   8
//   - -6 <= q-p <= -1:            (p-q)+1
//   - q-p <= -7:                  8
func PairCost(p, q kestrel.Position) int {
	if p.Attribute() != q.Attribute() {
		return maxCost
	}
	diff := int64(q) - int64(p)
	switch {
	case diff == 0:
		return 0
	case diff == 1:
		return 1
	case diff >= 2 && diff <= 7:
		return int(diff)
	case diff >= 8:
		return maxCost
	case diff <= -1 && diff >= -6:
		return int(-diff) + 1
	default:
		return maxCost
	}
}

// BestPairCost returns the smallest cost >= targetCost achievable
// between cur and some position in list (sorted ascending), and every
// position in list achieving exactly that cost. ok is false once no
// finite cost remains (targetCost > 8, or nothing qualifies at cost 8).
//
// This is the enumerator's only window into a position list. Costs 0
// through 7 are answered by binary-search probes for the one or two
// positions that can achieve them; cost 8 walks the whole list.
func BestPairCost(cur kestrel.Position, targetCost int, list []kestrel.Position) (achieved int, candidates []kestrel.Position, ok bool) {
	for c := targetCost; c <= maxCost; c++ {
		switch {
		case c == 0:
			if contains(list, cur) {
				return 0, []kestrel.Position{cur}, true
			}
		case c == 1:
			if sameAttribute(cur, cur+1) && contains(list, cur+1) {
				return 1, []kestrel.Position{cur + 1}, true
			}
		case c >= 2 && c <= 7:
			var out []kestrel.Position
			if uint32(cur) >= uint32(c-1) {
				behind := cur - kestrel.Position(c-1)
				if sameAttribute(cur, behind) && contains(list, behind) {
					out = append(out, behind)
				}
			}
			ahead := cur + kestrel.Position(c)
			if sameAttribute(cur, ahead) && contains(list, ahead) {
				out = append(out, ahead)
			}
			if len(out) > 0 {
				sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
				return c, out, true
			}
		case c == 8:
			out := catchAll(cur, list)
			if len(out) > 0 {
				return 8, out, true
			}
			return 0, nil, false
		}
	}
	return 0, nil, false
}

func sameAttribute(p, q kestrel.Position) bool { return p.Attribute() == q.Attribute() }

func contains(list []kestrel.Position, p kestrel.Position) bool {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= p })
	return i < len(list) && list[i] == p
}

// catchAll implements the cost-8 bucket: every same-attribute entry
// outside the cur-6..cur+7 window (the positions PairCost charges less
// than 8), plus every entry from a different attribute regardless of
// numeric distance (per the catch-all rule).
func catchAll(cur kestrel.Position, list []kestrel.Position) []kestrel.Position {
	low := int64(cur) - 6
	high := int64(cur) + 7
	var out []kestrel.Position
	for _, q := range list {
		if !sameAttribute(cur, q) {
			out = append(out, q)
			continue
		}
		v := int64(q)
		if v < low || v > high {
			out = append(out, q)
		}
	}
	return out
}

// pairCursor drives one edge of the chain — the join between the
// position chosen for term i and term i+1's position list — one cost
// tier at a time. Each advance call costs exactly one BestPairCost
// probe; it never materializes more of the list than the tier it
// just found.
type pairCursor struct {
	cur    kestrel.Position
	list   []kestrel.Position
	target int
	done   bool
}

func newPairCursor(cur kestrel.Position, list []kestrel.Position) *pairCursor {
	return &pairCursor{cur: cur, list: list}
}

// advance returns the next cost tier at or above the cursor's current
// target and every position achieving it, then primes target so a
// later call searches strictly beyond this tier. ok is false once no
// further tier exists.
func (c *pairCursor) advance() (cost int, tier []kestrel.Position, ok bool) {
	if c.done {
		return 0, nil, false
	}
	cost, tier, ok = BestPairCost(c.cur, c.target, c.list)
	if !ok {
		c.done = true
		return 0, nil, false
	}
	c.target = cost + 1
	return cost, tier, true
}

// lowerBound is the smallest cost a future advance could return,
// usable as a heap key before that cost is known.
func (c *pairCursor) lowerBound() int { return c.target }

// chainNode is one position chosen for one term, linked to the
// position chosen for the preceding term. A complete assignment is
// the chain from a depth-(N-1) node back to its depth-0 ancestor.
type chainNode struct {
	parent *chainNode
	value  kestrel.Position
	depth  int
}

// materialize expands the chain ending at n into a dense slice of the
// given length, zero-padding any depth beyond n (used only for
// heap-ordering comparisons of not-yet-complete chains).
func (n *chainNode) materialize(length int) []kestrel.Position {
	out := make([]kestrel.Position, length)
	for p := n; p != nil; p = p.parent {
		out[p.depth] = p.value
	}
	return out
}

// frontier is one entry of the enumerator's priority queue: a chain
// node realized up through node.depth with an exact accumulated cost
// of total, plus (if node.depth is not the final term) the cursor
// that generates node's children. A frontier with a nil cursor is a
// complete assignment, ready to emit as soon as it reaches the top of
// the queue.
type frontier struct {
	total  int
	node   *chainNode
	cursor *pairCursor
}

// key is this frontier's heap priority. With no cursor, node is a
// complete assignment and total is its exact cost. With a cursor,
// cursor.lowerBound() is the smallest cost its next advance could
// possibly return, so total+lowerBound is a valid lower bound on
// anything still reachable through this node — tight the moment the
// cursor has actually probed that cost, a bound until then.
func (f *frontier) key() int {
	if f.cursor == nil {
		return f.total
	}
	return f.total + f.cursor.lowerBound()
}

type frontierQueue struct {
	items  []*frontier
	length int
}

func (q *frontierQueue) Len() int { return len(q.items) }

func (q *frontierQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.key() != b.key() {
		return a.key() < b.key()
	}
	return lexLess(a.node.materialize(q.length), b.node.materialize(q.length))
}

func (q *frontierQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *frontierQueue) Push(x any) { q.items = append(q.items, x.(*frontier)) }

func (q *frontierQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return item
}

func lexLess(a, b []kestrel.Position) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Enumerator lazily yields (total proximity, chosen positions) tuples,
// one per call to Next, in non-decreasing total-cost order with ties
// broken lexicographically on chosen positions. It never emits a
// duplicate assignment.
//
// positions is scoped to one document: each sub-list is the sorted
// set of positions a single query term occupies within that document.
//
// Enumeration is driven incrementally by pairCursor/BestPairCost: each
// Next call advances a best-first search over the chain of adjacent
// term-position lists, pulling one new cost tier at a time rather
// than materializing the cross product of every list up front.
type Enumerator struct {
	positions [][]kestrel.Position
	queue     frontierQueue
	started   bool
	empty     bool
}

// New constructs an Enumerator over positions, one sorted position
// list per query term, in query order.
func New(positions [][]kestrel.Position) *Enumerator {
	return &Enumerator{positions: positions}
}

func (e *Enumerator) start() {
	e.started = true
	if len(e.positions) == 0 {
		e.empty = true
		return
	}
	for _, list := range e.positions {
		if len(list) == 0 {
			e.empty = true
			return
		}
	}

	e.queue.length = len(e.positions)
	last := len(e.positions) - 1
	for _, p := range e.positions[0] {
		node := &chainNode{value: p, depth: 0}
		f := &frontier{total: 0, node: node}
		if last > 0 {
			f.cursor = newPairCursor(p, e.positions[1])
		}
		heap.Push(&e.queue, f)
	}
}

// Next returns the next assignment in order, or ok=false once
// exhausted (including immediately, if any term's position list was
// empty).
func (e *Enumerator) Next() (total int, chosen []kestrel.Position, ok bool) {
	if !e.started {
		e.start()
	}
	if e.empty {
		return 0, nil, false
	}

	last := len(e.positions) - 1
	for e.queue.Len() > 0 {
		f := heap.Pop(&e.queue).(*frontier)
		if f.cursor == nil {
			return f.total, f.node.materialize(len(e.positions)), true
		}

		cost, tier, ok := f.cursor.advance()
		if ok {
			childTotal := f.total + cost
			childDepth := f.node.depth + 1
			for _, p := range tier {
				child := &chainNode{parent: f.node, value: p, depth: childDepth}
				cf := &frontier{total: childTotal, node: child}
				if childDepth < last {
					cf.cursor = newPairCursor(p, e.positions[childDepth+1])
				}
				heap.Push(&e.queue, cf)
			}
			// Requeue this node so a later pop can pull the next,
			// costlier tier from the same cursor.
			heap.Push(&e.queue, &frontier{total: f.total, node: f.node, cursor: f.cursor})
		}
	}
	return 0, nil, false
}
