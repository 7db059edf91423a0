package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/storage"
)

type RetentionSummary struct {
	Candidates int `json:"candidates"`
	Deleted    int `json:"deleted"`
	Failures   int `json:"failures"`
}

// Prune deletes all but the newest keep snapshot objects. The snapshot named by
// the LATEST pointer is never deleted.
func Prune(ctx context.Context, objects storage.ObjectStore, keep int) (RetentionSummary, error) {
	if keep < 1 {
		return RetentionSummary{}, fmt.Errorf("keep must be >= 1")
	}
	prefix, err := storage.SnapshotPrefix(inventory.TableName)
	if err != nil {
		return RetentionSummary{}, err
	}
	listed, err := objects.List(ctx, prefix)
	if err != nil {
		return RetentionSummary{}, err
	}
	latest, err := Latest(ctx, objects)
	if err != nil {
		return RetentionSummary{}, err
	}

	snapshots := make([]storage.ObjectInfo, 0, len(listed))
	for _, object := range listed {
		if strings.HasSuffix(object.Key, ".parquet") && object.Key != latest {
			snapshots = append(snapshots, object)
		}
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].LastModified.Equal(snapshots[j].LastModified) {
			return snapshots[i].LastModified.After(snapshots[j].LastModified)
		}
		return snapshots[i].Key > snapshots[j].Key
	})

	summary := RetentionSummary{}
	if len(snapshots) <= keep-1 {
		return summary, nil
	}
	for _, object := range snapshots[keep-1:] {
		summary.Candidates++
		if err := objects.Delete(ctx, object.Key); err != nil {
			summary.Failures++
			continue
		}
		summary.Deleted++
	}
	if summary.Failures > 0 {
		return summary, fmt.Errorf("failed to delete %d snapshot(s)", summary.Failures)
	}
	return summary, nil
}
