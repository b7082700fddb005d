package domain

// MatchResult is the outcome of comparing one resume against one job description.
type MatchResult struct {
	Score   int
	Message string
}
