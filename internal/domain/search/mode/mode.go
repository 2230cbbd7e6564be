package mode

// Mode selects how candidate rows are scored.
type Mode string

// Ranking mode constants.
const (
	// Ranked applies the additive multi-factor model and keeps every candidate.
	Ranked Mode = "ranked"
	// Weighted applies position-sensitive field weights and drops zero-score candidates.
	Weighted Mode = "weighted"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Ranked || m == Weighted
}
