package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/telephasma/telephasma/internal/database"
)

// MarkdownWriter renders a completed run as a Markdown report.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the run, its findings, and its gift edges.
func (w *MarkdownWriter) Write(run *database.Run, findings []database.Finding, edges []database.GiftEdge) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, findings, edges)
	w.writeFindings(md, findings)
	w.writeEdges(md, findings, edges)
	w.writeFooter(md)

	return md.Build()
}

// writeHeader writes the run parameter table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *database.Run) {
	md.H1("Telephasma Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Seed", "`" + run.Seed + "`"},
			{"Max Depth", strconv.Itoa(run.MaxDepth)},
			{"Delay", run.Delay.String()},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")
}

// statusText renders the run outcome.
func statusText(run *database.Run) string {
	switch run.Status {
	case database.RunStatusCompleted:
		return "✅ Complete"
	case database.RunStatusStopped:
		return "⚠️ Stopped (partial results)"
	case database.RunStatusFailed:
		return "❌ Failed"
	default:
		return "⏳ Running"
	}
}

// writeSummary writes finding counts and a per-depth pie chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, findings []database.Finding, edges []database.GiftEdge) {
	md.H2("Summary")
	md.PlainText("")

	maxDepth := 0
	byDepth := make(map[int]int)
	for _, f := range findings {
		byDepth[f.Depth]++
		if f.Depth > maxDepth {
			maxDepth = f.Depth
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Users with findings", strconv.Itoa(len(findings))},
			{"Gift edges", strconv.Itoa(len(edges))},
			{"Deepest level reached", strconv.Itoa(maxDepth)},
		},
	})
	md.PlainText("")

	if len(findings) > 0 {
		w.writePieChart(md, byDepth, maxDepth)
	}

	switch {
	case len(findings) == 0:
		md.Note("No users with external links were found in this run.")
	case len(edges) > 0:
		md.Importantf(
			"%d gift edge(s) connect the discovered accounts; review them for sockpuppet clusters.",
			len(edges),
		)
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of findings per depth.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, byDepth map[int]int, maxDepth int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Findings by Depth"),
		piechart.WithShowData(true),
	)

	for depth := 0; depth <= maxDepth; depth++ {
		if byDepth[depth] > 0 {
			chart.LabelAndIntValue("Depth "+strconv.Itoa(depth), uint64(byDepth[depth]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFindings writes one table row per discovered user.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, findings []database.Finding) {
	md.H2("Findings")
	md.PlainText("")

	if len(findings) == 0 {
		md.PlainText("No findings recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(findings))
	for i, f := range findings {
		links := "-"
		if f.Result != nil && len(f.Result.Links) > 0 {
			links = truncateString(strings.Join(f.Result.Links, ", "), 60)
		}
		from := f.DiscoveredFrom
		if from == "" {
			from = "-"
		}
		rows[i] = []string{
			strconv.FormatInt(f.UserID, 10),
			userLabel(f),
			strconv.Itoa(f.Depth),
			from,
			links,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"User ID", "User", "Depth", "Discovered From", "Links"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Result != nil && f.Result.Bio != "" {
			md.Details(userLabel(f), f.Result.Bio)
		}
	}
	md.PlainText("")
}

// writeEdges writes the gift graph table.
func (w *MarkdownWriter) writeEdges(md *markdown.Markdown, findings []database.Finding, edges []database.GiftEdge) {
	md.H2("Gift Graph")
	md.PlainText("")

	if len(edges) == 0 {
		md.PlainText("No gift edges recorded.")
		md.PlainText("")
		return
	}

	names := make(map[int64]string, len(findings))
	for _, f := range findings {
		names[f.UserID] = userLabel(f)
	}

	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{
			edgeLabel(names, e.SenderID),
			edgeLabel(names, e.ReceiverID),
			strconv.Itoa(e.Stars),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Sender", "Receiver", "Stars"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText(fmt.Sprintf("*Report generated by Telephasma at %s*", time.Now().Format("2006-01-02 15:04:05 MST")))
}

// userLabel renders the most useful handle for a finding.
func userLabel(f database.Finding) string {
	if f.Username != "" {
		return "@" + f.Username
	}
	if f.Result != nil && f.Result.FirstName != "" {
		return f.Result.FirstName
	}
	return strconv.FormatInt(f.UserID, 10)
}

// edgeLabel renders one endpoint of a gift edge, preferring a known handle.
func edgeLabel(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return strconv.FormatInt(id, 10)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
