package stats

import (
	"github.com/verte-zerg/tangotune/internal/model"
)

// SelectWeakArtists returns up to top artists with the lowest accuracy.
// Artists that were never missed are not weak.
func SelectWeakArtists(aggs []model.ArtistAggregate, top int) []string {
	candidates := make([]model.ArtistAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Missed > 0 {
			candidates = append(candidates, agg)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sortWeakestFirst(candidates)
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]string, 0, top)
	for _, agg := range candidates[:top] {
		out = append(out, agg.Artist)
	}
	return out
}
