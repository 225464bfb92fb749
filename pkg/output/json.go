package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/geobeyond/geodiff-action/pkg/models"
)

// JSONFormatter renders the structured document for automation and scripting
type JSONFormatter struct{}

// JSONDocument is the consumer-facing structured output
type JSONDocument struct {
	BaseFile    string      `json:"base_file"`
	CompareFile string      `json:"compare_file"`
	HasChanges  bool        `json:"has_changes"`
	Summary     JSONSummary `json:"summary"`
	Changes     JSONChanges `json:"changes"`
}

// JSONSummary holds the change counters
type JSONSummary struct {
	TotalChanges int `json:"total_changes"`
	Inserts      int `json:"inserts"`
	Updates      int `json:"updates"`
	Deletes      int `json:"deletes"`
}

// JSONChanges wraps the per-table detail
type JSONChanges struct {
	Geodiff []JSONTable `json:"geodiff"`
}

// JSONTable is the change list of one table
type JSONTable struct {
	Table   string       `json:"table"`
	Changes []JSONChange `json:"changes"`
}

// JSONChange is one classified row operation
type JSONChange struct {
	Type models.OperationKind `json:"type"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format serialises the summary with two-space indentation
func (f *JSONFormatter) Format(summary *models.DiffSummary) (string, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(NewJSONDocument(summary)); err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

// NewJSONDocument converts a summary to its wire shape.
// Empty lists are rendered as [] rather than null.
func NewJSONDocument(summary *models.DiffSummary) JSONDocument {
	tables := make([]JSONTable, 0, len(summary.Detail))
	for _, group := range summary.Detail {
		changes := make([]JSONChange, 0, len(group.Operations))
		for _, op := range group.Operations {
			changes = append(changes, JSONChange{Type: op.Kind})
		}
		tables = append(tables, JSONTable{Table: group.Table, Changes: changes})
	}

	return JSONDocument{
		BaseFile:    summary.BaseFile,
		CompareFile: summary.CompareFile,
		HasChanges:  summary.HasChanges,
		Summary: JSONSummary{
			TotalChanges: summary.Counts.Total,
			Inserts:      summary.Counts.Inserts,
			Updates:      summary.Counts.Updates,
			Deletes:      summary.Counts.Deletes,
		},
		Changes: JSONChanges{Geodiff: tables},
	}
}

// Parse decodes a structured document back into a summary
func Parse(data []byte) (*models.DiffSummary, error) {
	var doc JSONDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}

	detail := make([]models.TableChangeGroup, 0, len(doc.Changes.Geodiff))
	for _, table := range doc.Changes.Geodiff {
		group := models.TableChangeGroup{Table: table.Table}
		for _, change := range table.Changes {
			group.Operations = append(group.Operations, models.RowOperation{Table: table.Table, Kind: change.Type})
		}
		detail = append(detail, group)
	}

	return &models.DiffSummary{
		BaseFile:    doc.BaseFile,
		CompareFile: doc.CompareFile,
		HasChanges:  doc.HasChanges,
		Counts: models.ChangeCounts{
			Total:   doc.Summary.TotalChanges,
			Inserts: doc.Summary.Inserts,
			Updates: doc.Summary.Updates,
			Deletes: doc.Summary.Deletes,
		},
		Detail: detail,
	}, nil
}
