package schema

// RankedRepository adds presentation data to a RepositoryHealth.
type RankedRepository struct {
	Rank int `json:"rank"`
	RepositoryHealth
}

// GetHealthLabel returns a plain text label describing a 0-100 health score.
func GetHealthLabel(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

// RankRepositories adds rank to a list of health results that is already sorted.
func RankRepositories(repos []RepositoryHealth) []RankedRepository {
	output := make([]RankedRepository, len(repos))
	for i, r := range repos {
		output[i] = RankedRepository{
			Rank:             i + 1,
			RepositoryHealth: r,
		}
	}
	return output
}
