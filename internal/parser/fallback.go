package parser

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"framesight/internal/model"
)

// recoverMembers runs the member fallback cascade in order, stopping at
// the first strategy that yields anything. Every strategy is constrained
// to the known node set, so a recovered member can never reference a
// missing node. Returns the members and the names of the strategies
// attempted (for error reporting).
func recoverMembers(lines []string, nodes []model.Node, log *zap.Logger) ([]model.Member, []string) {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	strategies := []struct {
		name string
		run  func() []model.Member
	}{
		{"line-scan", func() []model.Member { return scanIncidenceLines(lines, known) }},
		{"adjacent-tokens", func() []model.Member { return scanAdjacentNodeTokens(lines, known) }},
		{"sequential-chain", func() []model.Member { return chainSequential(nodes) }},
		{"proximity-graph", func() []model.Member { return connectByProximity(nodes) }},
	}

	var tried []string
	for _, s := range strategies {
		tried = append(tried, s.name)
		if members := s.run(); len(members) > 0 {
			log.Warn("member tables empty, recovered members via fallback",
				zap.String("strategy", s.name),
				zap.Int("members", len(members)))
			return members, tried
		}
	}
	return nil, tried
}

// scanIncidenceLines looks for any `id startId endId` triple anywhere in
// the file where both endpoints are known nodes.
func scanIncidenceLines(lines []string, known map[string]bool) []model.Member {
	var out []model.Member
	seen := make(map[string]bool)
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || isComment(line) {
			continue
		}
		for _, chunk := range splitChunks(line) {
			fields := splitFields(chunk)
			if len(fields) < 3 {
				continue
			}
			id, start, end := fields[0], fields[1], fields[2]
			if seen[id] || !known[start] || !known[end] || start == end {
				continue
			}
			seen[id] = true
			out = append(out, model.Member{ID: id, StartNodeID: start, EndNodeID: end})
		}
	}
	return out
}

// scanAdjacentNodeTokens synthesizes a member between any two adjacent
// known-node tokens on the same line.
func scanAdjacentNodeTokens(lines []string, known map[string]bool) []model.Member {
	var out []model.Member
	seen := make(map[string]bool)
	n := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || isComment(line) {
			continue
		}
		fields := splitFields(line)
		for i := 0; i+1 < len(fields); i++ {
			a, b := fields[i], fields[i+1]
			if a == b || !known[a] || !known[b] {
				continue
			}
			key := pairKey(a, b)
			if seen[key] {
				continue
			}
			seen[key] = true
			n++
			out = append(out, model.Member{
				ID:          fmt.Sprintf("F%d", n),
				StartNodeID: a,
				EndNodeID:   b,
			})
		}
	}
	return out
}

// chainSequential connects nodes pairwise in ascending numeric-id order.
func chainSequential(nodes []model.Node) []model.Member {
	if len(nodes) < 2 {
		return nil
	}
	ordered := make([]model.Node, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool {
		ni, iOK := numericID(ordered[i].ID)
		nj, jOK := numericID(ordered[j].ID)
		if iOK && jOK {
			return ni < nj
		}
		if iOK != jOK {
			return iOK // numeric ids first
		}
		return ordered[i].ID < ordered[j].ID
	})

	out := make([]model.Member, 0, len(ordered)-1)
	for i := 0; i+1 < len(ordered); i++ {
		out = append(out, model.Member{
			ID:          fmt.Sprintf("F%d", i+1),
			StartNodeID: ordered[i].ID,
			EndNodeID:   ordered[i+1].ID,
		})
	}
	return out
}

// connectByProximity is the last resort: every node pair within the
// 25th percentile of all pairwise distances becomes a member.
func connectByProximity(nodes []model.Node) []model.Member {
	if len(nodes) < 2 {
		return nil
	}

	type pair struct {
		i, j int
		d    float64
	}
	var pairs []pair
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			pairs = append(pairs, pair{i, j, distance(nodes[i], nodes[j])})
		}
	}

	dists := make([]float64, len(pairs))
	for i, p := range pairs {
		dists[i] = p.d
	}
	sort.Float64s(dists)
	cutoff := dists[len(dists)/4]

	var out []model.Member
	n := 0
	for _, p := range pairs {
		if p.d > cutoff || p.d == 0 {
			continue
		}
		n++
		out = append(out, model.Member{
			ID:          fmt.Sprintf("F%d", n),
			StartNodeID: nodes[p.i].ID,
			EndNodeID:   nodes[p.j].ID,
		})
	}
	return out
}

func numericID(id string) (int, bool) {
	trimmed := strings.TrimLeftFunc(id, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if trimmed == "" {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed)
	return n, err == nil
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

func distance(a, b model.Node) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
