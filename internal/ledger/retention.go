package ledger

import (
	"context"
	"fmt"

	"github.com/gridnote/studio/internal/schema"
)

// PruneResult summarizes one retention pass.
type PruneResult struct {
	// RunsDeleted is how many run rows were removed.
	RunsDeleted int
	// OrphanedAssetPaths lists asset paths no surviving run references.
	// Deleting the files is the caller's decision; content-addressed assets
	// may be shared, so only genuinely unreferenced paths appear here.
	OrphanedAssetPaths []string
}

// Prune enforces the project's retention settings: oldest runs beyond
// MaxRuns are dropped first, then further oldest runs until total recorded
// artifact bytes fit under MaxArtifactsMB. A zero limit disables that limit.
func (s *Store) Prune(ctx context.Context, projectID string, retention schema.Retention) (*PruneResult, error) {
	runs, err := s.ListRuns(ctx, projectID, 1<<20)
	if err != nil {
		return nil, err
	}

	// ListRuns returns newest first; decide survivors from the top.
	var doomed []string
	kept := 0
	var keptBytes int64
	maxBytes := int64(retention.MaxArtifactsMB) * 1 << 20
	for _, rec := range runs {
		overCount := retention.MaxRuns > 0 && kept >= retention.MaxRuns
		overBytes := maxBytes > 0 && keptBytes+rec.ArtifactBytes > maxBytes && kept > 0
		if overCount || overBytes {
			doomed = append(doomed, rec.RunID)
			continue
		}
		kept++
		keptBytes += rec.ArtifactBytes
	}

	if len(doomed) == 0 {
		return &PruneResult{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin prune tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Capture the doomed runs' artifact paths before the cascading deletes.
	doomedPaths := make(map[string]bool)
	for _, runID := range doomed {
		rows, err := tx.QueryContext(ctx, "SELECT path FROM artifacts WHERE run_id = ?", runID)
		if err != nil {
			return nil, fmt.Errorf("query artifacts of run %s: %w", runID, err)
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan artifact path: %w", err)
			}
			doomedPaths[p] = true
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}

	for _, runID := range doomed {
		if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID); err != nil {
			return nil, fmt.Errorf("delete run %s: %w", runID, err)
		}
	}

	// Anything still referenced by a surviving run must not be reported as
	// orphaned.
	rows, err := tx.QueryContext(ctx, "SELECT DISTINCT path FROM artifacts")
	if err != nil {
		return nil, fmt.Errorf("query surviving artifacts: %w", err)
	}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan artifact path: %w", err)
		}
		delete(doomedPaths, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit prune: %w", err)
	}

	result := &PruneResult{RunsDeleted: len(doomed)}
	for p := range doomedPaths {
		result.OrphanedAssetPaths = append(result.OrphanedAssetPaths, p)
	}
	return result, nil
}
