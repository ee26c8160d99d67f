package splitter

// Config holds the tunables of the splitter.
type Config struct {
	// BoundaryThreshold is the minimum confidence a "different document" verdict
	// needs before it starts a new group.
	BoundaryThreshold float64
	// PairExcerptChars caps each page excerpt sent with a pairwise comparison.
	PairExcerptChars int
	// BatchPageChars caps each page text sent with the batch classification.
	BatchPageChars int
	// GroupConfidence is assigned to assembled groups when no better value exists.
	GroupConfidence float64
	// FailedPairConfidence is the confidence of the merge verdict used when a comparison fails.
	FailedPairConfidence float64
	// FallbackConfidence is the confidence of the whole-document group produced on failure.
	FallbackConfidence float64
}

func DefaultConfig() Config {
	return Config{
		BoundaryThreshold:    0.6,
		PairExcerptChars:     1500,
		BatchPageChars:       3000,
		GroupConfidence:      0.8,
		FailedPairConfidence: 0.3,
		FallbackConfidence:   0.3,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BoundaryThreshold <= 0 {
		c.BoundaryThreshold = d.BoundaryThreshold
	}
	if c.PairExcerptChars <= 0 {
		c.PairExcerptChars = d.PairExcerptChars
	}
	if c.BatchPageChars <= 0 {
		c.BatchPageChars = d.BatchPageChars
	}
	if c.GroupConfidence <= 0 {
		c.GroupConfidence = d.GroupConfidence
	}
	if c.FailedPairConfidence <= 0 {
		c.FailedPairConfidence = d.FailedPairConfidence
	}
	if c.FallbackConfidence <= 0 {
		c.FallbackConfidence = d.FallbackConfidence
	}
	return c
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// truncateRunes returns the first n runes of s and whether anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s, false
	}
	return string(runes[:n]), true
}
