package scheduler

// Registered job names.
const (
	JobRecomputeRecommendations = "recompute_recommendations"
	JobRecomputeStatistics      = "recompute_statistics"
)
