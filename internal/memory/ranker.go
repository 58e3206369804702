package memory

import "sort"

// RankedEntry pairs a ContentEntry with a retrieval score.
type RankedEntry struct {
	ContentEntry
	Similarity float64 `json:"similarity"`
	FinalScore float64 `json:"final_score"`
}

// engagementWeight favours entries the user has revised or derived from others.
func engagementWeight(e ContentEntry) float64 {
	switch {
	case len(e.ModificationHistory) > 0:
		return 1.0
	case e.IsModification():
		return 0.9
	default:
		return 0.7
	}
}

// RankEntries scores entries by similarity × engagement and sorts them,
// highest first. Equal scores keep newer entries ahead.
// similarityByID maps entry ID → similarity (0-1).
func RankEntries(entries []ContentEntry, similarityByID map[string]float64) []RankedEntry {
	ranked := make([]RankedEntry, 0, len(entries))
	for _, e := range entries {
		sim := similarityByID[e.ID]
		ranked = append(ranked, RankedEntry{
			ContentEntry: e,
			Similarity:   sim,
			FinalScore:   sim * engagementWeight(e),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].Timestamp.After(ranked[j].Timestamp)
	})
	return ranked
}
