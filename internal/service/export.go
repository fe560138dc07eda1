package service

import (
	"encoding/csv"
	stdjson "encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Export formats
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Columns added to every exported row
const (
	colResult = "annotation_result"
	colStatus = "annotation_status"
	colIndex  = "data_index"
)

// ExportOptions controls what an export contains
type ExportOptions struct {
	Format string
	// IncludeOriginal copies the source record's fields into each row.
	IncludeOriginal bool
	// OnlyCompleted drops rows the worker has not saved.
	OnlyCompleted bool
}

// Export writes a task's records joined with one worker's results to w and
// returns the number of rows written.
func (s *Service) Export(w io.Writer, taskID, workerID string, opts ExportOptions) (int, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatJSON
	}
	switch format {
	case FormatJSON, FormatJSONL, FormatCSV:
	default:
		return 0, errors.Wrapf(models.ErrUnsupportedFormat, "%q", opts.Format)
	}

	task, err := s.db.GetTask(taskID)
	if err != nil {
		return 0, err
	}
	saved, err := s.db.ListAnnotations(taskID, workerID)
	if err != nil {
		return 0, err
	}
	results := make(map[int]stdjson.RawMessage, len(saved))
	for _, rec := range saved {
		results[rec.ItemIndex] = rec.Result
	}

	recs := s.records.ReadAll(task.DataPath)
	rows := make([]map[string]any, 0, len(recs))
	for i, rec := range recs {
		result, done := results[i]
		if opts.OnlyCompleted && !done {
			continue
		}
		row := map[string]any{}
		if opts.IncludeOriginal {
			fields, err := rec.Fields()
			if err != nil {
				return 0, errors.Wrapf(err, "record %d", i)
			}
			for k, v := range fields {
				row[k] = v
			}
		}
		row[colResult] = nil
		row[colStatus] = "pending"
		if done {
			row[colResult] = result
			row[colStatus] = "completed"
		}
		row[colIndex] = i
		rows = append(rows, row)
	}

	switch format {
	case FormatJSON:
		err = writeJSON(w, rows)
	case FormatJSONL:
		err = writeJSONL(w, rows)
	case FormatCSV:
		err = writeCSV(w, rows)
	}
	if err != nil {
		return 0, err
	}

	s.metrics.RecordExport(format, len(rows))
	s.log.WithField("task_id", taskID).WithField("worker_id", workerID).
		WithField("format", format).Infof("exported %d rows", len(rows))
	return len(rows), nil
}

func writeJSON(w io.Writer, rows []map[string]any) error {
	data, err := codec.MarshalIndent(rows, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = w.Write(append(data, '\n'))
	return errors.WithStack(err)
}

func writeJSONL(w io.Writer, rows []map[string]any) error {
	enc := codec.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// writeCSV emits the record fields in sorted order followed by the
// annotation columns.
func writeCSV(w io.Writer, rows []map[string]any) error {
	seen := map[string]bool{colResult: true, colStatus: true, colIndex: true}
	var fields []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
		}
	}
	sort.Strings(fields)
	header := append(fields, colResult, colStatus, colIndex)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.WithStack(err)
	}
	line := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			line[i] = csvValue(col, row[col])
		}
		if err := cw.Write(line); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

func csvValue(col string, v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return fmt.Sprint(v)
	case stdjson.RawMessage:
		if col == colResult {
			return models.FormatResult(v)
		}
		return string(v)
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
