package scoreboard

import "math/rand"

// This file implements a skip list with span counts for O(log n) rank
// queries, the same layout Redis uses for sorted sets.

const (
	maxLevel         = 32   // Max skip list height
	levelProbability = 0.25 // P=0.25 gives optimal balance
)

// rankNode is a node in the skip list
type rankNode struct {
	id    uint32
	score int
	next  []*rankNode // Forward pointers (one per level)
	span  []int       // Nodes crossed by each forward pointer
}

// ranking orders ids by score, highest first, ties by ascending id.
// It is not safe for concurrent use; Board serializes access.
type ranking struct {
	head   *rankNode
	level  int
	length int
	scores map[uint32]int
	rng    *rand.Rand
}

func newRanking(seed int64) *ranking {
	return &ranking{
		head: &rankNode{
			next: make([]*rankNode, maxLevel),
			span: make([]int, maxLevel),
		},
		level:  1,
		scores: make(map[uint32]int),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// before reports whether (score a, id a) ranks ahead of (score b, id b).
func before(sa int, ia uint32, sb int, ib uint32) bool {
	return sa > sb || (sa == sb && ia < ib)
}

// randomLevel returns a level in [1, maxLevel] with geometric distribution
func (r *ranking) randomLevel() int {
	level := 1
	for level < maxLevel && r.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// set inserts id or moves it to its new score.
func (r *ranking) set(id uint32, score int) {
	if old, ok := r.scores[id]; ok {
		if old == score {
			return
		}
		r.remove(id)
	}

	var update [maxLevel]*rankNode
	var rank [maxLevel]int

	x := r.head
	for i := r.level - 1; i >= 0; i-- {
		if i < r.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && before(x.next[i].score, x.next[i].id, score, id) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	level := r.randomLevel()
	if level > r.level {
		for i := r.level; i < level; i++ {
			rank[i] = 0
			update[i] = r.head
			update[i].span[i] = r.length
		}
		r.level = level
	}

	node := &rankNode{
		id:    id,
		score: score,
		next:  make([]*rankNode, level),
		span:  make([]int, level),
	}
	for i := 0; i < level; i++ {
		node.next[i] = update[i].next[i]
		update[i].next[i] = node
		node.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = rank[0] - rank[i] + 1
	}
	for i := level; i < r.level; i++ {
		update[i].span[i]++
	}

	r.length++
	r.scores[id] = score
}

// remove deletes id, reporting whether it was present.
func (r *ranking) remove(id uint32) bool {
	score, ok := r.scores[id]
	if !ok {
		return false
	}

	var update [maxLevel]*rankNode
	x := r.head
	for i := r.level - 1; i >= 0; i-- {
		for x.next[i] != nil && before(x.next[i].score, x.next[i].id, score, id) {
			x = x.next[i]
		}
		update[i] = x
	}
	node := x.next[0]

	for i := 0; i < r.level; i++ {
		if update[i].next[i] == node {
			update[i].span[i] += node.span[i] - 1
			update[i].next[i] = node.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for r.level > 1 && r.head.next[r.level-1] == nil {
		r.level--
	}

	r.length--
	delete(r.scores, id)
	return true
}

// rank returns the 1-based rank of id, or 0 if it is not ranked.
func (r *ranking) rank(id uint32) int {
	score, ok := r.scores[id]
	if !ok {
		return 0
	}
	rank := 0
	x := r.head
	for i := r.level - 1; i >= 0; i-- {
		for x.next[i] != nil && (x.next[i].id == id || before(x.next[i].score, x.next[i].id, score, id)) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x != r.head && x.id == id {
			return rank
		}
	}
	return 0
}

// rangeIDs returns the ids ranked start..end (1-based, inclusive).
func (r *ranking) rangeIDs(start, end int) []uint32 {
	if start < 1 {
		start = 1
	}
	if end > r.length {
		end = r.length
	}
	if start > end {
		return nil
	}

	traversed := 0
	x := r.head
	for i := r.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] < start {
			traversed += x.span[i]
			x = x.next[i]
		}
	}

	ids := make([]uint32, 0, end-start+1)
	for x = x.next[0]; x != nil && traversed < end; x = x.next[0] {
		traversed++
		ids = append(ids, x.id)
	}
	return ids
}

func (r *ranking) len() int { return r.length }

func (r *ranking) clear() {
	for i := range r.head.next {
		r.head.next[i] = nil
		r.head.span[i] = 0
	}
	r.level = 1
	r.length = 0
	clear(r.scores)
}
