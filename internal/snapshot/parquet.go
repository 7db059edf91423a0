package snapshot

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/stockpilot/stockpilot/internal/inventory"
)

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

func EncodeRecords(records []inventory.Record) (EncodeResult, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[inventory.Record](buf)
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(records))}, nil
}
