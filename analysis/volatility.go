// Package analysis provides the stateless market heuristics: volatility
// ranking and momentum detection.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"auto_traider_go/history"
	"auto_traider_go/market"
)

// Score is one good's volatility measurement over its recent history.
type Score struct {
	GoodID int
	Name   string
	Vol    float64
}

// RankVolatility scores every good by (max-min)/min over its price
// history and returns the ids of the topN most volatile ones together
// with their scores in rank order. Goods with fewer than two
// observations score zero. Ties keep the goods' original order.
func RankVolatility(goods []market.Good, hist *history.Store, topN int) ([]int, []Score) {
	scores := make([]Score, 0, len(goods))
	for _, g := range goods {
		s := Score{GoodID: g.ID, Name: g.Name}
		if min, max, ok := hist.MinMax(g.ID); ok {
			s.Vol = (max - min) / min
		}
		scores = append(scores, s)
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Vol > scores[j].Vol })

	if topN > len(scores) {
		topN = len(scores)
	}
	top := scores[:topN]
	ids := make([]int, len(top))
	for i, s := range top {
		ids[i] = s.GoodID
	}
	return ids, top
}

// Summary formats scores as "name:vol%" lines joined by ", ".
func Summary(scores []Score) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%s:%.1f%%", s.Name, s.Vol*100)
	}
	return strings.Join(parts, ", ")
}
