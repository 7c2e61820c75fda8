// Package output renders a dedupe.Result as text, JSON, or CSV. Out of the
// engine's own scope (spec §1 puts argument parsing and output rendering
// outside the core) — this is thin glue for cmd/bookdupe.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/calibretools/bookdupe/internal/dedupe"
)

// Format selects a rendering.
type Format string

// Supported Format values.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Write renders result to w in the given format. An unknown format is an
// error, not a silent fallback.
func Write(w io.Writer, format Format, result dedupe.Result) error {
	switch format {
	case FormatText, "":
		return writeText(w, result)
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	default:
		return fmt.Errorf("output: unknown format %q", format)
	}
}

func writeText(w io.Writer, result dedupe.Result) error {
	if result.Status == dedupe.StatusCancelled {
		_, err := fmt.Fprintln(w, "scan cancelled")
		return err
	}
	if len(result.Groups) == 0 {
		_, err := fmt.Fprintln(w, "no duplicates found")
		return err
	}
	for _, g := range result.Groups {
		ids := make([]string, len(g.BookIDs))
		for i, id := range g.BookIDs {
			ids[i] = strconv.FormatInt(int64(id), 10)
		}
		line := fmt.Sprintf("group %d: %s", g.GroupID, strings.Join(ids, ", "))
		if g.MatchKey != nil {
			line += fmt.Sprintf(" (match_key=%s)", *g.MatchKey)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// jsonResult mirrors dedupe.Result with lower_snake field names per spec §6.
type jsonGroup struct {
	GroupID  int             `json:"group_id"`
	BookIDs  []dedupe.BookID `json:"book_ids"`
	MatchKey *string         `json:"match_key,omitempty"`
}

type jsonResult struct {
	Status string      `json:"status"`
	Groups []jsonGroup `json:"groups"`
}

func writeJSON(w io.Writer, result dedupe.Result) error {
	out := jsonResult{Status: statusString(result.Status)}
	for _, g := range result.Groups {
		out.Groups = append(out.Groups, jsonGroup{GroupID: g.GroupID, BookIDs: g.BookIDs, MatchKey: g.MatchKey})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeCSV(w io.Writer, result dedupe.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"group_id", "book_id", "match_key"}); err != nil {
		return err
	}
	for _, g := range result.Groups {
		matchKey := ""
		if g.MatchKey != nil {
			matchKey = *g.MatchKey
		}
		for _, id := range g.BookIDs {
			row := []string{strconv.Itoa(g.GroupID), strconv.FormatInt(int64(id), 10), matchKey}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func statusString(s dedupe.Status) string {
	if s == dedupe.StatusCancelled {
		return "cancelled"
	}
	return "ok"
}

// WriteSummary renders a Summary as a single human-readable line, used by
// `bookdupe summary`.
func WriteSummary(w io.Writer, s dedupe.Summary, scannedBytes int64) error {
	_, err := fmt.Fprintf(w, "groups=%d books=%d duplicates_to_remove=%d largest_group=%d avg_group_size=%.2f scanned=%s\n",
		s.TotalGroups, s.TotalBooks, s.DuplicatesToRemove, s.LargestGroup, s.AvgGroupSize, humanize.Bytes(uint64(scannedBytes)))
	return err
}

// WriteSummaryJSON renders a Summary as JSON.
func WriteSummaryJSON(w io.Writer, s dedupe.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
