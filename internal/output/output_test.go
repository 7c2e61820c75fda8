package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calibretools/bookdupe/internal/dedupe"
)

func sampleResult() dedupe.Result {
	key := "kevinanderson"
	return dedupe.Result{
		Status: dedupe.StatusOK,
		Groups: []dedupe.DuplicateGroup{
			{GroupID: 1, BookIDs: []dedupe.BookID{1, 2}},
			{GroupID: 2, BookIDs: []dedupe.BookID{3, 4, 5}, MatchKey: &key},
		},
	}
}

func TestWriteTextListsEveryGroup(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "group 1: 1, 2")
	assert.Contains(t, out, "group 2: 3, 4, 5 (match_key=kevinanderson)")
}

func TestWriteTextCancelled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, dedupe.Result{Status: dedupe.StatusCancelled}))
	assert.Equal(t, "scan cancelled\n", buf.String())
}

func TestWriteTextNoDuplicates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, dedupe.Result{Status: dedupe.StatusOK}))
	assert.Equal(t, "no duplicates found\n", buf.String())
}

func TestWriteJSONRoundTripsGroupShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, `"group_id": 1`)
	assert.Contains(t, out, `"book_ids"`)
	assert.Contains(t, out, `"match_key": "kevinanderson"`)
	assert.NotContains(t, out, `"match_key": null`, "match_key must be omitted, not null, when unset")
}

func TestWriteCSVHasOneRowPerBook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleResult()))

	r := csv.NewReader(strings.NewReader(buf.String()))
	records, err := r.ReadAll()
	require.NoError(t, err)

	// header + 2 books in group 1 + 3 books in group 2
	require.Len(t, records, 1+2+3)
	assert.Equal(t, []string{"group_id", "book_id", "match_key"}, records[0])
	assert.Equal(t, []string{"2", "3", "kevinanderson"}, records[3])
}

func TestWriteUnknownFormatErrors(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Format("yaml"), sampleResult())
	assert.Error(t, err)
}

func TestWriteSummaryFormatsBytes(t *testing.T) {
	var buf bytes.Buffer
	s := dedupe.Summary{TotalGroups: 2, TotalBooks: 5, DuplicatesToRemove: 3, LargestGroup: 3, AvgGroupSize: 2.5}
	require.NoError(t, WriteSummary(&buf, s, 1_500_000))

	out := buf.String()
	assert.Contains(t, out, "groups=2")
	assert.Contains(t, out, "duplicates_to_remove=3")
	assert.Contains(t, out, "scanned=1.5 MB")
}
