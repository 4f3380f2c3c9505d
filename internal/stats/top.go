package stats

import (
	"sort"

	"github.com/verte-zerg/tangotune/internal/model"
)

// MostPlayed returns the top N artists by number of scored rounds.
func MostPlayed(aggs []model.ArtistAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.ArtistAggregate, len(aggs))
	copy(items, aggs)
	sort.Slice(items, func(i, j int) bool {
		ti := items[i].Correct + items[i].Missed
		tj := items[j].Correct + items[j].Missed
		if ti == tj {
			return items[i].Artist < items[j].Artist
		}
		return ti > tj
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for _, item := range items[:n] {
		out = append(out, item.Artist)
	}
	return out
}
