// internal/puzzle/solver.go
//
// A* search over board states, used for hints and for replaying a shuffled
// board back to the identity.
//
// Heuristic: sum of Manhattan distances of the non-blank tiles (admissible, so
// the returned path is a shortest one).
// Output: the sequence of positions to pass to AttemptMove, in order.

package puzzle

import (
	"container/heap"
	"context"
	"errors"
)

// ErrNoSolution is returned when the search is exhausted or hits its expansion cap.
var ErrNoSolution = errors.New("solution not found")

// DefaultMaxExpand bounds Solve for boards bigger than 3x3. The 3x3 space has
// 181440 reachable states, so the cap is never reached there.
const DefaultMaxExpand = 500000

// MaxHintSize is the largest side length Hint will search.
const MaxHintSize = 4

// ctxCheckEvery is how many expansions pass between context checks.
const ctxCheckEvery = 1024

type searchNode struct {
	board  []int
	empty  int
	moved  int // position clicked to reach this node, -1 for the root
	g, h   int
	index  int
	parent *searchNode
}

type openQueue []*searchNode

func (q openQueue) Len() int { return len(q) }
func (q openQueue) Less(i, j int) bool {
	fi, fj := q[i].g+q[i].h, q[j].g+q[j].h
	if fi == fj {
		return q[i].h < q[j].h
	}
	return fi < fj
}
func (q openQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *openQueue) Push(x any)   { n := x.(*searchNode); n.index = len(*q); *q = append(*q, n) }
func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	item.index = -1
	*q = old[:n-1]
	return item
}

// Solve returns a shortest sequence of positions that sorts board back to the
// identity. maxExpand <= 0 means DefaultMaxExpand. The search stops with
// ctx.Err() once ctx is done.
func Solve(ctx context.Context, board []int, maxExpand int) ([]int, error) {
	size := sideOf(len(board))
	if size == 0 || !isPermutation(board) {
		return nil, ErrInvalidBoard
	}
	if !IsSolvable(board) {
		return nil, ErrNoSolution
	}
	if maxExpand <= 0 {
		maxExpand = DefaultMaxExpand
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := &searchNode{board: append([]int(nil), board...), moved: -1, h: manhattan(board, size)}
	for i, v := range board {
		if v == len(board) {
			start.empty = i
		}
	}

	open := &openQueue{}
	heap.Init(open)
	heap.Push(open, start)
	best := map[string]int{key(start.board): 0}
	closed := map[string]bool{}
	expanded := 0

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		if IsIdentity(cur.board) {
			return pathOf(cur), nil
		}
		k := key(cur.board)
		if closed[k] {
			continue
		}
		closed[k] = true
		expanded++
		if expanded > maxExpand {
			break
		}
		if expanded%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for _, pos := range neighbours(cur.empty, size) {
			next := append([]int(nil), cur.board...)
			next[pos], next[cur.empty] = next[cur.empty], next[pos]
			nk := key(next)
			if closed[nk] {
				continue
			}
			g := cur.g + 1
			if prev, seen := best[nk]; seen && g >= prev {
				continue
			}
			best[nk] = g
			heap.Push(open, &searchNode{
				board: next, empty: pos, moved: pos,
				g: g, h: manhattan(next, size), parent: cur,
			})
		}
	}
	return nil, ErrNoSolution
}

// Hint returns the next position to activate on the shortest route to the goal.
// ok is false for solved or unsolvable boards, boards wider than MaxHintSize,
// and when ctx ends before a route is found.
func Hint(ctx context.Context, board []int) (pos int, ok bool) {
	if sideOf(len(board)) > MaxHintSize {
		return 0, false
	}
	path, err := Solve(ctx, board, 0)
	if err != nil || len(path) == 0 {
		return 0, false
	}
	return path[0], true
}

func pathOf(n *searchNode) []int {
	var rev []int
	for ; n != nil && n.moved >= 0; n = n.parent {
		rev = append(rev, n.moved)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// neighbours lists positions orthogonally adjacent to empty.
func neighbours(empty, size int) []int {
	out := make([]int, 0, 4)
	for _, p := range []int{empty - size, empty + size, empty - 1, empty + 1} {
		if adjacent(p, empty, size) {
			out = append(out, p)
		}
	}
	return out
}

func manhattan(board []int, size int) int {
	sum := 0
	for i, v := range board {
		if v == len(board) {
			continue
		}
		t := v - 1
		sum += abs(i%size-t%size) + abs(i/size-t/size)
	}
	return sum
}

func key(board []int) string {
	b := make([]byte, len(board))
	for i, v := range board {
		b[i] = byte(v)
	}
	return string(b)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
