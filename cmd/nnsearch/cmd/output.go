package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/app"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/eval"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true)
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleName   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	stylePrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	styleHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
)

func printField(label, value string) {
	fmt.Printf("  %-13s %s\n", label+":", value)
}

// formatCandidates renders one ranking:
//
//	fireb (ensemble) 3 candidates
//	   1. Fireball       0.812
//	   2. Fire Bolt      0.144
func formatCandidates(query, strategy string, cands []rank.Candidate) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s %d candidates\n",
		styleTitle.Render(query), styleMuted.Render("("+strategy+")"), len(cands)))
	width := 0
	for _, c := range cands {
		width = max(width, len(c.Name))
	}
	for i, c := range cands {
		sb.WriteString(fmt.Sprintf("  %2d. %s%s %s\n",
			i+1, styleName.Render(c.Name), strings.Repeat(" ", width-len(c.Name)),
			styleMuted.Render(strconv.FormatFloat(c.Confidence, 'f', 3, 64))))
	}
	return sb.String()
}

// formatRunLine is the one-line summary printed as each evaluation run
// finishes: "Label: t1=.. t2=.. t3=.. t10=.. f=.. t=seconds".
func formatRunLine(r app.RunResult) string {
	rep := r.Report
	return fmt.Sprintf("%s: t1=%d t2=%d t3=%d t10=%d f=%d t=%.2f",
		r.Label, rep.Top1, rep.Top2, rep.Top3, rep.Top10, len(rep.Failures), rep.Elapsed.Seconds())
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

// summaryTable compares evaluation runs by cumulative hit rate.
func summaryTable(results []app.RunResult) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		row := []string{r.Label}
		for _, k := range eval.Cutoffs {
			rate, _ := r.Report.HitRate(k)
			row = append(row, percent(rate))
		}
		rows[i] = append(row, strconv.Itoa(len(r.Report.Failures)))
	}
	return newTable().
		Headers("run", "top1", "top2", "top3", "top10", "failed").
		Rows(rows...).
		String()
}

// compareTable lays out one column per strategy, one row per rank position.
func compareTable(strategies []string, columns [][]rank.Candidate) string {
	depth := 0
	for _, col := range columns {
		depth = max(depth, len(col))
	}
	rows := make([][]string, depth)
	for i := range rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			if i < len(col) {
				row[j] = col[i].Name
			}
		}
		rows[i] = row
	}
	return newTable().Headers(strategies...).Rows(rows...).String()
}

// reportsTable lists stored runs with their per-bucket counts.
func reportsTable(reports []ports.RunReport) string {
	rows := make([][]string, len(reports))
	for i, r := range reports {
		subset := ports.SubsetFull
		if r.Restricted {
			subset = ports.SubsetRestricted
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows[i] = []string{
			id, r.Strategy, r.Model, subset,
			strconv.Itoa(r.Top1), strconv.Itoa(r.Top2), strconv.Itoa(r.Top3), strconv.Itoa(r.Top10),
			strconv.Itoa(r.Failed),
			r.Elapsed.Round(time.Millisecond).String(),
			time.Unix(r.RecordedAt, 0).Format(time.DateTime),
		}
	}
	return newTable().
		Headers("id", "strategy", "model", "subset", "t1", "t2", "t3", "t10", "failed", "elapsed", "recorded").
		Rows(rows...).
		String()
}

// batchesTable lists stored batches.
func batchesTable(batches []app.BatchSummary) string {
	rows := make([][]string, len(batches))
	for i, b := range batches {
		rows[i] = []string{b.Name, strconv.Itoa(b.Entries), strconv.Itoa(b.Runs)}
	}
	return newTable().Headers("batch", "entries", "runs").Rows(rows...).String()
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleMuted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	scorer := h.Scorer
	if scorer == "" {
		scorer = "none"
	} else if h.Restricted {
		scorer += " (restricted)"
	}
	sb.WriteString(styleTitle.Render("nnsearch daemon") + "\n")
	sb.WriteString(fmt.Sprintf("  Status:      %s\n", styleOK.Render(h.Status)))
	sb.WriteString(fmt.Sprintf("  Entries:     %d\n", h.CatalogSize))
	sb.WriteString(fmt.Sprintf("  Scorer:      %s\n", scorer))
	sb.WriteString(fmt.Sprintf("  Strategies:  %s\n", strings.Join(h.Strategies, ", ")))
	sb.WriteString(fmt.Sprintf("  Reloads:     %d\n", h.Reloads))
	sb.WriteString(fmt.Sprintf("  Uptime:      %s\n", h.Uptime))
	return sb.String()
}

// formatPrepare summarizes a preparation run.
func formatPrepare(r *app.PrepareResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s batch %s in %s\n",
		styleOK.Render("prepared"), styleTitle.Render(r.Batch), r.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("  Catalog:       %d entries (%d restricted)\n", r.CatalogSize, r.RestrictedSize))
	sb.WriteString(fmt.Sprintf("  Observations:  %d\n", r.Observations))
	sb.WriteString(fmt.Sprintf("  Queries:       %d (%d restricted)\n", r.Queries, r.RestrictedQueries))
	sb.WriteString(fmt.Sprintf("  Eval pairs:    %d\n", r.Pairs))
	writeFiles(&sb, r.Files)
	return sb.String()
}

// formatExport summarizes a re-export of a stored batch.
func formatExport(batch string, paths []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s batch %s\n", styleOK.Render("exported"), styleTitle.Render(batch)))
	writeFiles(&sb, paths)
	return sb.String()
}

func writeFiles(sb *strings.Builder, paths []string) {
	for _, f := range paths {
		sb.WriteString(fmt.Sprintf("  %s %s\n", styleMuted.Render("wrote"), f))
	}
}
