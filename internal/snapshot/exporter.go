package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

type Info struct {
	ID          string    `json:"snapshot_id"`
	Key         string    `json:"object_key"`
	RecordCount int64     `json:"record_count"`
	SizeBytes   int64     `json:"size_bytes"`
	TakenAt     time.Time `json:"taken_at"`
}

// Exporter copies the Inventory table into a parquet object and advances the
// LATEST pointer to it.
type Exporter struct {
	Source  backend.Store
	Objects storage.ObjectStore
	now     func() time.Time
	newID   func() string
}

func NewExporter(source backend.Store, objects storage.ObjectStore) *Exporter {
	return &Exporter{
		Source:  source,
		Objects: objects,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

func (e *Exporter) Export(ctx context.Context) (Info, error) {
	if e.Source == nil || e.Objects == nil {
		return Info{}, fmt.Errorf("snapshot exporter is not configured")
	}

	rows, err := e.Source.Select(ctx, backend.Query{})
	if err != nil {
		return Info{}, &backend.Error{Op: "select", Err: err}
	}
	records := make([]inventory.Record, 0, len(rows))
	for _, row := range rows {
		record, err := inventory.RecordFromRow(row)
		if err != nil {
			return Info{}, err
		}
		records = append(records, record)
	}

	encoded, err := EncodeRecords(records)
	if err != nil {
		return Info{}, err
	}

	takenAt := e.now()
	id := e.newID()
	key, err := storage.BuildSnapshotPath(inventory.TableName, takenAt, id)
	if err != nil {
		return Info{}, err
	}
	objectInfo, err := e.Objects.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: parquetContentType,
		Metadata: map[string]string{
			"snapshot-id": id,
			"row-count":   strconv.FormatInt(encoded.RecordCount, 10),
		},
	})
	if err != nil {
		return Info{}, fmt.Errorf("upload snapshot: %w", err)
	}

	pointer, err := storage.BuildLatestPointerPath(inventory.TableName)
	if err != nil {
		return Info{}, err
	}
	if _, err := e.Objects.Put(ctx, pointer, strings.NewReader(key), int64(len(key)), storage.PutOptions{ContentType: "text/plain"}); err != nil {
		return Info{}, fmt.Errorf("update latest snapshot pointer: %w", err)
	}
	observability.ObserveSnapshot(encoded.RecordCount)

	return Info{
		ID:          id,
		Key:         key,
		RecordCount: encoded.RecordCount,
		SizeBytes:   objectInfo.Size,
		TakenAt:     takenAt,
	}, nil
}

// Latest resolves the object key of the newest snapshot.
func Latest(ctx context.Context, objects storage.ObjectStore) (string, error) {
	pointer, err := storage.BuildLatestPointerPath(inventory.TableName)
	if err != nil {
		return "", err
	}
	reader, err := objects.Get(ctx, pointer)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", fmt.Errorf("no snapshot has been exported yet: %w", err)
		}
		return "", fmt.Errorf("read latest snapshot pointer: %w", err)
	}
	defer func() { _ = reader.Close() }()
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read latest snapshot pointer: %w", err)
	}
	key := strings.TrimSpace(string(body))
	if key == "" {
		return "", fmt.Errorf("latest snapshot pointer is empty")
	}
	return key, nil
}
