// Package cli renders kbassist results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hyperjump/kbassist/internal/knowledge"
	"github.com/hyperjump/kbassist/internal/library"
	"github.com/hyperjump/kbassist/internal/models"
	"github.com/hyperjump/kbassist/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per item.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	good    = color.New(color.FgGreen, color.Bold).SprintFunc()
	bad     = color.New(color.FgRed, color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// ParseFormat validates a -format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text, compact or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieveResults writes retrieval results to w in the given format.
func WriteRetrieveResults(w io.Writer, response *models.RetrieveResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\n", r.Rank, r.Score, oneLine(r.Content, 120))
		}
		return nil
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, r := range response.Results {
		writeChunk(w, r)
	}
	return nil
}

func writeChunk(w io.Writer, r *models.RetrievedChunk) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s | Score: %.4f\n", heading(fmt.Sprintf("Rank: %d", r.Rank)), r.Score)
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Content, 400))
}

// WriteAnswer writes a chat answer and its sources.
func WriteAnswer(w io.Writer, response *models.ChatResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		fmt.Fprintln(w, response.Answer)
		return nil
	}
	fmt.Fprintf(w, "\n%s\n%s\n\n", heading("Answer"), response.Answer)
	if len(response.Sources) > 0 {
		fmt.Fprintf(w, "%s\n", heading(fmt.Sprintf("Sources (%d)", len(response.Sources))))
		for _, s := range response.Sources {
			fmt.Fprintf(w, "  [%d] %.4f %s\n", s.Rank, s.Score, dim(TruncateWords(oneLine(s.Content, 0), 20)))
		}
	}
	return nil
}

// WriteStatus writes the knowledge base status.
func WriteStatus(w io.Writer, st *knowledge.Status, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, st)
	case OutputCompact:
		fmt.Fprintf(w, "ready=%t source=%s chunks=%d terms=%d state=%s mirror=%s mirror_index=%t\n",
			st.Ready, st.Source, st.Chunks, st.Terms, st.State, st.Mirror, st.MirrorHasIndex)
		return nil
	}
	ready := bad("not ready")
	if st.Ready {
		ready = good("ready")
	}
	fmt.Fprintf(w, "Knowledge base: %s\n", ready)
	mirrored := ""
	if st.MirrorHasIndex {
		mirrored = " " + dim("(index stored)")
	}
	fmt.Fprintf(w, "  Source: %s\n  Chunks: %d\n  Terms:  %d\n  State:  %s\n  Mirror: %s%s\n",
		st.Source, st.Chunks, st.Terms, st.State, st.Mirror, mirrored)
	writeManifest(w, "Local manifest", st.LocalManifest)
	writeManifest(w, "Mirror manifest", st.MirrorManifest)
	return nil
}

func writeManifest(w io.Writer, title string, m *knowledge.Manifest) {
	if m == nil {
		fmt.Fprintf(w, "%s: %s\n", title, dim("none"))
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Created: %s\n  Chunks:  %d\n  PDFs:    %d\n  Storage: %s\n  Model:   %s\n",
		m.CreatedAt.Format("2006-01-02 15:04:05"), m.NumChunks, m.NumPDFs, m.StorageType, m.EmbeddingModel)
}

// WriteValidation writes the outcome of a setup validation.
func WriteValidation(w io.Writer, problems []string, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, map[string]interface{}{"ok": len(problems) == 0, "problems": problems})
	case OutputCompact:
		for _, p := range problems {
			fmt.Fprintln(w, p)
		}
		return nil
	}
	if len(problems) == 0 {
		fmt.Fprintf(w, "%s all checks passed\n", good("OK"))
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(w, "%s %s\n", bad("FAIL"), p)
	}
	return nil
}

// WriteDocuments writes the PDF library listing.
func WriteDocuments(w io.Writer, entries []library.Entry, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, entries)
	case OutputCompact:
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\n", e.Name, e.SizeBytes, e.Description())
		}
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No PDFs found.")
		return nil
	}
	fmt.Fprintf(w, "%s\n", heading(fmt.Sprintf("%d PDFs", len(entries))))
	for _, e := range entries {
		fmt.Fprintf(w, "  %s  %s  %s\n", e.Name, FormatBytes(e.SizeBytes), dim(e.ModifiedAt.Format("2006-01-02 15:04")))
		if d := e.Description(); d != "" {
			fmt.Fprintf(w, "      %s\n", d)
		}
	}
	return nil
}

// WriteBackups writes backup manifests.
func WriteBackups(w io.Writer, backups []library.BackupManifest, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, backups)
	case OutputCompact:
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%d\n", b.BackupName, b.PDFCount)
		}
		return nil
	}
	if len(backups) == 0 {
		fmt.Fprintln(w, "No backups found.")
		return nil
	}
	for _, b := range backups {
		fmt.Fprintf(w, "  %s  %d PDFs  %s\n", b.BackupName, b.PDFCount, dim(b.CreatedAt.Format("2006-01-02 15:04")))
	}
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func oneLine(s string, maxLen int) string {
	return utils.Truncate(strings.Join(strings.Fields(s), " "), maxLen)
}
