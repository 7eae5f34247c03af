package services

import (
	"sort"

	"diningguide/pkg/diningtypes"
)

// HallCount is the number of selected foods served by one hall.
type HallCount struct {
	Hall  string
	Count int
}

// TallyHalls counts foods per dining hall, keeping halls in first-seen order.
func TallyHalls(items []diningtypes.FoodItem) []HallCount {
	positions := make(map[string]int)
	var tally []HallCount
	for _, item := range items {
		pos, seen := positions[item.DiningHall]
		if !seen {
			positions[item.DiningHall] = len(tally)
			tally = append(tally, HallCount{Hall: item.DiningHall, Count: 1})
			continue
		}
		tally[pos].Count++
	}
	return tally
}

// RankHalls returns the tally sorted by count, highest first.
// Halls with equal counts stay in first-seen order.
func RankHalls(items []diningtypes.FoodItem) []HallCount {
	ranked := TallyHalls(items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// Recommend returns the dining hall serving the most selected foods.
// The second result is false when items is empty.
func Recommend(items []diningtypes.FoodItem) (string, bool) {
	ranked := RankHalls(items)
	if len(ranked) == 0 {
		return "", false
	}
	return ranked[0].Hall, true
}
