package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildSnapshotPath places a table snapshot under a date partition.
func BuildSnapshotPath(tableName string, takenAt time.Time, snapshotID string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(snapshotID, "snapshot id"); err != nil {
		return "", err
	}
	ts := takenAt.UTC()
	return path.Join(
		tableName,
		"snapshots",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("snapshot-%s.parquet", snapshotID),
	), nil
}

// SnapshotPrefix is the key prefix every snapshot object of a table shares.
func SnapshotPrefix(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(tableName, "snapshots") + "/", nil
}

// BuildLatestPointerPath is the object whose body names the newest snapshot key.
func BuildLatestPointerPath(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(tableName, "snapshots", "LATEST"), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
