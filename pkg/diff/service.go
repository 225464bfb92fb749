// Package diff computes and classifies the changes between two data files.
package diff

import (
	"context"

	"github.com/google/uuid"

	"github.com/geobeyond/geodiff-action/pkg/changeset"
	"github.com/geobeyond/geodiff-action/pkg/logging"
	"github.com/geobeyond/geodiff-action/pkg/models"
	"github.com/geobeyond/geodiff-action/pkg/validate"
)

// Service orchestrates validation, changeset creation and classification
type Service struct {
	adapter *changeset.Adapter
	logger  logging.Logger
}

// NewService creates a new diff service
func NewService(adapter *changeset.Adapter, logger logging.Logger) *Service {
	return &Service{
		adapter: adapter,
		logger:  logging.OrNull(logger),
	}
}

// Summarize compares basePath with comparePath.
//
// Inputs are validated before the engine is called. The changeset and its
// workspace are released on every return path.
func (s *Service) Summarize(ctx context.Context, basePath, comparePath string) (*models.DiffSummary, error) {
	base, compare, err := validate.Pair(basePath, comparePath)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logging.Fields{
		"run_id": uuid.New().String(),
		"engine": s.adapter.EngineName(),
	})

	artifact, err := s.adapter.Create(ctx, base, compare)
	if err != nil {
		log.Error(ctx, "changeset creation failed", err, nil)
		return nil, err
	}
	defer func() {
		if cerr := artifact.Close(); cerr != nil {
			log.Warn(ctx, "failed to release changeset workspace", logging.Fields{"error": cerr.Error()})
		}
	}()

	nonEmpty := s.adapter.IsNonEmpty(ctx, artifact)
	count := s.adapter.Count(ctx, artifact)
	log.Debug(ctx, "changeset probed", logging.Fields{"non_empty": nonEmpty, "count": count})

	var ops []models.RowOperation
	if nonEmpty || count > 0 {
		ops, err = s.adapter.Decode(ctx, artifact)
		if err != nil {
			log.Error(ctx, "changeset decode failed", err, nil)
			return nil, err
		}
	}

	summary := Classify(base, compare, nonEmpty, count, ops)

	if classified := summary.Counts.Classified(); classified != count {
		log.Warn(ctx, "engine count differs from classified operations", logging.Fields{
			"engine_count": count,
			"classified":   classified,
		})
	}

	log.Info(ctx, "comparison complete", logging.Fields{
		"has_changes": summary.HasChanges,
		"total":       summary.Counts.Total,
		"tables":      len(summary.Detail),
	})

	return summary, nil
}

// Classify builds a summary from decoded operations.
// total is the engine's own count and is reported as-is.
func Classify(base, compare models.FileReference, nonEmpty bool, total int, ops []models.RowOperation) *models.DiffSummary {
	counts := Tally(ops)
	counts.Total = total

	return &models.DiffSummary{
		BaseFile:    base.Path,
		CompareFile: compare.Path,
		HasChanges:  nonEmpty || total > 0,
		Counts:      counts,
		Detail:      GroupByTable(ops),
	}
}

// GroupByTable groups operations by table in first-seen table order,
// keeping emission order within each table
func GroupByTable(ops []models.RowOperation) []models.TableChangeGroup {
	groups := make([]models.TableChangeGroup, 0)
	index := make(map[string]int)

	for _, op := range ops {
		i, ok := index[op.Table]
		if !ok {
			i = len(groups)
			index[op.Table] = i
			groups = append(groups, models.TableChangeGroup{Table: op.Table})
		}
		groups[i].Operations = append(groups[i].Operations, op)
	}

	return groups
}

// Tally counts operations by kind; Total is left at zero
func Tally(ops []models.RowOperation) models.ChangeCounts {
	var counts models.ChangeCounts
	for _, op := range ops {
		switch op.Kind {
		case models.OpInsert:
			counts.Inserts++
		case models.OpUpdate:
			counts.Updates++
		case models.OpDelete:
			counts.Deletes++
		}
	}
	return counts
}
