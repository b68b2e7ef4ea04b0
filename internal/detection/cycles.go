package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrResourceLimitExceeded reports that cycle enumeration stopped before exploring
// every simple path.
var ErrResourceLimitExceeded = errors.New("cycle detection resource limit exceeded")

// minCycleLength excludes self-loops and two-account back-and-forth transfers.
const minCycleLength = 3

// ctxCheckInterval is how many path extensions happen between context checks.
const ctxCheckInterval = 1024

// Cycle is a closed walk of distinct accounts; the edge from the last member back
// to the first is implied.
type Cycle []string

// UniqueMembers returns the cycle's accounts in order of first appearance.
func (c Cycle) UniqueMembers() []string {
	seen := make(map[string]struct{}, len(c))
	members := make([]string, 0, len(c))
	for _, account := range c {
		if _, ok := seen[account]; ok {
			continue
		}
		seen[account] = struct{}{}
		members = append(members, account)
	}
	return members
}

// Canonical rotates the cycle so it starts at its lexicographically smallest member.
func (c Cycle) Canonical() Cycle {
	if len(c) == 0 {
		return Cycle{}
	}
	lo := 0
	for i := range c {
		if c[i] < c[lo] {
			lo = i
		}
	}
	out := make(Cycle, 0, len(c))
	out = append(out, c[lo:]...)
	return append(out, c[:lo]...)
}

func (c Cycle) key() string {
	return strings.Join(c, "\x00")
}

// CycleLimits bounds the exhaustive search.
type CycleLimits struct {
	MaxPaths int
	MaxDepth int
}

type frame struct {
	account string
	next    int
}

// DetectCycles enumerates every simple cycle of at least three accounts by running a
// depth-first search of all simple paths from each sender. The same cycle is reported
// once per member, as a rotation rooted at that member, and once more for every
// parallel closing edge.
//
// The search is exponential in the number of simple paths. When a limit in lim is
// reached or ctx is done, the cycles found so far are returned together with an
// error wrapping ErrResourceLimitExceeded.
func DetectCycles(ctx context.Context, g *Graph, lim CycleLimits) ([]Cycle, error) {
	var (
		cycles   []Cycle
		path     []string
		stack    []frame
		extended int
		depthHit bool
	)
	onPath := make(map[string]bool)

	for _, start := range g.Senders() {
		clear(onPath)
		onPath[start] = true
		path = append(path[:0], start)
		stack = append(stack[:0], frame{account: start})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbors := g.Neighbors(top.account)
			if top.next >= len(neighbors) {
				delete(onPath, top.account)
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}

			next := neighbors[top.next]
			top.next++

			if next == start && len(path) >= minCycleLength {
				cycles = append(cycles, append(Cycle(nil), path...))
			}
			if onPath[next] {
				continue
			}
			if lim.MaxDepth > 0 && len(path) >= lim.MaxDepth {
				depthHit = true
				continue
			}

			extended++
			if lim.MaxPaths > 0 && extended > lim.MaxPaths {
				return cycles, fmt.Errorf("%w: explored more than %d paths", ErrResourceLimitExceeded, lim.MaxPaths)
			}
			if extended%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return cycles, fmt.Errorf("%w: %w", ErrResourceLimitExceeded, err)
				}
			}

			onPath[next] = true
			path = append(path, next)
			stack = append(stack, frame{account: next})
		}
	}

	if depthHit {
		return cycles, fmt.Errorf("%w: paths longer than %d accounts were not explored", ErrResourceLimitExceeded, lim.MaxDepth)
	}
	return cycles, nil
}

// CanonicalizeCycles rotates every cycle to its smallest member and drops repeats,
// keeping the first occurrence of each in discovery order.
func CanonicalizeCycles(cycles []Cycle) []Cycle {
	seen := make(map[string]struct{}, len(cycles))
	out := make([]Cycle, 0, len(cycles))
	for _, c := range cycles {
		canon := c.Canonical()
		k := canon.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, canon)
	}
	return out
}
