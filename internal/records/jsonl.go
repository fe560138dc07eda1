package records

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedRecord is returned when a line is not a JSON object
var ErrMalformedRecord = stderrors.New("malformed record")

// Record is one JSON object, kept as the compact bytes of its source line
type Record []byte

// Fields decodes the record into a generic map
func (r Record) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(r, &fields); err != nil {
		return nil, errors.Wrap(ErrMalformedRecord, err.Error())
	}
	return fields, nil
}

// MarshalJSON keeps the record verbatim when it is embedded in other JSON
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// Parse reads JSONL from r. Blank lines are skipped; any other line must be a
// JSON object or the whole parse fails with the 1-based line number.
func Parse(r io.Reader) ([]Record, error) {
	var recs []Record
	scanner := newScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !isRecord(raw) {
			return nil, errors.Wrapf(ErrMalformedRecord, "line %d", line)
		}
		recs = append(recs, Record(bytes.Clone(raw)))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return recs, nil
}

// isRecord reports whether a trimmed, non-blank line holds a JSON object
func isRecord(raw []byte) bool {
	return raw[0] == '{' && json.Valid(raw)
}

// FieldNames returns the sorted union of the top-level keys of recs
func FieldNames(recs []Record) []string {
	seen := map[string]struct{}{}
	for _, r := range recs {
		fields, err := r.Fields()
		if err != nil {
			continue
		}
		for k := range fields {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidatePaths checks that file-typed fields (image, pdf) point at files that
// exist under basePath. It returns one message per missing file.
func ValidatePaths(recs []Record, fieldConfigs map[string]models.FieldConfig, basePath string) []string {
	names := make([]string, 0, len(fieldConfigs))
	for name, fc := range fieldConfigs {
		if fc.IsFile() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var missing []string
	for i, r := range recs {
		fields, err := r.Fields()
		if err != nil {
			continue
		}
		for _, name := range names {
			value, ok := fields[name].(string)
			if !ok || value == "" {
				continue
			}
			if _, err := os.Stat(ResolvePath(basePath, value)); err != nil {
				missing = append(missing, fmt.Sprintf("record %d field %s: %s", i+1, name, value))
			}
		}
	}
	return missing
}

// ResolvePath joins a relative file field value onto basePath
func ResolvePath(basePath, value string) string {
	if basePath == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(basePath, value)
}
