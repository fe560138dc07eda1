package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/annotate/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	s, err := NewStore(filepath.Join(t.TempDir(), "records"), log)
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	input := "{\"q\": \"a\", \"n\": 1.50}\n\n  {\"q\":\"b\"}  \n"
	recs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// source bytes are kept verbatim apart from surrounding whitespace
	assert.Equal(t, `{"q": "a", "n": 1.50}`, string(recs[0]))
	assert.Equal(t, `{"q":"b"}`, string(recs[1]))

	fields, err := recs[0].Fields()
	require.NoError(t, err)
	assert.Equal(t, "a", fields["q"])
}

func TestParseRejectsMalformedLine(t *testing.T) {
	_, err := Parse(strings.NewReader("{\"q\":1}\n[1,2]\n"))
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Parse(strings.NewReader("{\"q\":\n"))
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	recs := []Record{Record(`{"i":0}`), Record(`{"i":1}`), Record(`{"i":2}`)}

	resource, err := s.Write(recs)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resource, ".jsonl"))

	assert.Equal(t, 3, s.Length(resource))
	assert.Equal(t, recs, s.ReadAll(resource))
}

func TestUnreadableResourceDegrades(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, 0, s.Length("missing.jsonl"))
	assert.Nil(t, s.ReadAll("missing.jsonl"))
	assert.Equal(t, 0, s.Length(""))

	resource, err := s.Write([]Record{Record(`{"a":1}`)})
	require.NoError(t, err)
	require.NoError(t, s.Remove(resource))
	assert.Equal(t, 0, s.Length(resource))

	// removing twice is fine
	require.NoError(t, s.Remove(resource))
}

func TestCorruptResourceReadsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("bad.jsonl"), []byte("{\"a\":1}\nnot json\n"), 0644))

	assert.Nil(t, s.ReadAll("bad.jsonl"))
	assert.Equal(t, 0, s.Length("bad.jsonl"))

	// a valid JSON value that is not an object is still corrupt
	require.NoError(t, os.WriteFile(s.Path("array.jsonl"), []byte("{\"a\":1}\n[1,2]\n"), 0644))
	assert.Nil(t, s.ReadAll("array.jsonl"))
	assert.Equal(t, 0, s.Length("array.jsonl"))

	// blank lines are not records and do not corrupt the resource
	require.NoError(t, os.WriteFile(s.Path("gaps.jsonl"), []byte("{\"a\":1}\n\n  \n{\"a\":2}\n"), 0644))
	assert.Len(t, s.ReadAll("gaps.jsonl"), 2)
	assert.Equal(t, 2, s.Length("gaps.jsonl"))
}

func TestFieldNames(t *testing.T) {
	recs := []Record{Record(`{"b":1,"a":2}`), Record(`{"c":3}`)}
	assert.Equal(t, []string{"a", "b", "c"}, FieldNames(recs))
}

func TestValidatePaths(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "present.png"), []byte("x"), 0644))

	recs := []Record{
		Record(`{"img":"present.png","doc":"a.pdf","text":"missing.png"}`),
		Record(`{"img":"absent.png"}`),
	}
	fields := map[string]models.FieldConfig{
		"img":  {Type: models.RenderImage},
		"doc":  {Type: models.RenderPDF},
		"text": {Type: models.RenderText},
	}

	missing := ValidatePaths(recs, fields, base)
	assert.Equal(t, []string{
		"record 1 field doc: a.pdf",
		"record 2 field img: absent.png",
	}, missing)
}
