package models

// TableChangeGroup holds the operations of one table in emission order
type TableChangeGroup struct {
	Table      string
	Operations []RowOperation
}

// Len returns the number of operations in the group
func (g TableChangeGroup) Len() int {
	return len(g.Operations)
}

// ChangeCounts holds the aggregated counters of a comparison
type ChangeCounts struct {
	// Total is the change count reported by the engine
	Total int

	// Inserts, Updates and Deletes are tallied from decoded operations
	Inserts int
	Updates int
	Deletes int
}

// Classified returns the number of decoded operations that were tallied
func (c ChangeCounts) Classified() int {
	return c.Inserts + c.Updates + c.Deletes
}

// DiffSummary is the result of comparing a base file with a compare file
type DiffSummary struct {
	BaseFile    string
	CompareFile string

	// HasChanges is true when the engine reports changes or Total > 0
	HasChanges bool

	Counts ChangeCounts

	// Detail lists affected tables in first-seen order
	Detail []TableChangeGroup
}

// Tables returns the names of the affected tables
func (s *DiffSummary) Tables() []string {
	names := make([]string, 0, len(s.Detail))
	for _, g := range s.Detail {
		names = append(names, g.Table)
	}
	return names
}
