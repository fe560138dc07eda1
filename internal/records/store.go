// Package records stores record collections as JSONL files, one file per task.
//
// Reads are forgiving: a missing or unreadable file is reported as an empty
// collection so that progress queries degrade to zero instead of failing.
package records

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxLineSize bounds a single record line
const maxLineSize = 16 * 1024 * 1024

// Store reads and writes record files under a single directory
type Store struct {
	dir string
	log logrus.FieldLogger
}

// NewStore creates the directory if needed and returns a store rooted at it
func NewStore(dir string, log logrus.FieldLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create records dir %s", dir)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{dir: dir, log: log}, nil
}

// Path returns the on-disk path of a resource
func (s *Store) Path(resource string) string {
	if filepath.IsAbs(resource) {
		return resource
	}
	return filepath.Join(s.dir, resource)
}

// Length returns the number of records in resource, 0 if it cannot be read
// or holds a line that is not a record.
func (s *Store) Length(resource string) int {
	if resource == "" {
		return 0
	}
	f, err := os.Open(s.Path(resource))
	if err != nil {
		s.log.WithError(err).WithField("resource", resource).Debug("record resource unreadable")
		return 0
	}
	defer f.Close()

	n, line := 0, 0
	scanner := newScanner(f)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !isRecord(raw) {
			s.log.WithFields(logrus.Fields{"resource": resource, "line": line}).Warn("record resource corrupt")
			return 0
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		s.log.WithError(err).WithField("resource", resource).Debug("record resource unreadable")
		return 0
	}
	return n
}

// ReadAll returns every record in resource, nil if it cannot be read
func (s *Store) ReadAll(resource string) []Record {
	if resource == "" {
		return nil
	}
	f, err := os.Open(s.Path(resource))
	if err != nil {
		s.log.WithError(err).WithField("resource", resource).Debug("record resource unreadable")
		return nil
	}
	defer f.Close()

	recs, err := Parse(f)
	if err != nil {
		s.log.WithError(err).WithField("resource", resource).Warn("record resource corrupt")
		return nil
	}
	return recs
}

// Write persists records as a new resource and returns its name.
// The file is written under a temporary name and renamed into place.
func (s *Store) Write(recs []Record) (string, error) {
	resource := "records_" + uuid.NewString() + ".jsonl"
	final := s.Path(resource)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*.jsonl")
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, r := range recs {
		if _, err := w.Write(r); err != nil {
			tmp.Close()
			return "", errors.WithStack(err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return "", errors.WithStack(err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return "", errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", errors.WithStack(err)
	}
	return resource, nil
}

// Remove deletes a resource. Removing a missing resource is not an error.
func (s *Store) Remove(resource string) error {
	err := os.Remove(s.Path(resource))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}
