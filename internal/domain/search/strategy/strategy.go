package strategy

// Strategy is the text predicate the datastore evaluates.
type Strategy string

// Match strategies.
const (
	// FullText delegates to the datastore's native text index.
	FullText Strategy = "fulltext"
	// Fuzzy is a case-insensitive substring match over name OR description.
	Fuzzy Strategy = "fuzzy"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == FullText || s == Fuzzy
}
