// Package report renders analysis verdicts for humans: a text summary for
// the terminal and an XLSX workbook for case files.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/clearframe/forensics-cli/internal/model"
)

// WriteText renders one run's verdict and phase timing as a plain-text
// report.
func WriteText(w io.Writer, run *model.Run, phases []model.PhaseRecord) error {
	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Video:    %s\n", run.VideoID)
	fmt.Fprintf(w, "Status:   %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}
	if run.Verdict == nil {
		fmt.Fprintln(w, "No verdict recorded.")
		return nil
	}

	v := run.Verdict
	fmt.Fprintf(w, "Decision: %s (probability %.3f, %s)\n\n", v.Decision, v.Probability, v.Reason)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tSTATUS\tSCORE\tSUPPORT\tFLAGGED\tREASONS")
	for _, lr := range v.Levels {
		switch lr.Status {
		case model.LevelEvaluated:
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%d\t%v\t%s\n",
				lr.Level, lr.Status, lr.Score, lr.Support, lr.Suspicious,
				strings.Join(lr.Reasons, ","))
		default:
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t\n", lr.Level, lr.Status)
		}
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "report: flush text")
	}

	if len(phases) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PHASE\tSTATUS\tDURATION")
		for _, p := range phases {
			fmt.Fprintf(tw, "%s\t%s\t%dms\n", p.Name, p.Status, p.DurationMS)
		}
		if err := tw.Flush(); err != nil {
			return eris.Wrap(err, "report: flush phases")
		}
	}
	return nil
}

// WriteXLSX writes a batch of runs into a workbook: a summary sheet with
// one row per run and a detail sheet with one row per evaluated level.
func WriteXLSX(path string, runs []model.Run) error {
	file := xlsx.NewFile()

	summary, err := file.AddSheet("runs")
	if err != nil {
		return eris.Wrap(err, "report: add runs sheet")
	}
	header := summary.AddRow()
	for _, h := range []string{"run_id", "video_id", "status", "decision", "probability", "escalation_reason", "triggered_levels", "error"} {
		header.AddCell().Value = h
	}
	for _, run := range runs {
		row := summary.AddRow()
		row.AddCell().Value = run.ID
		row.AddCell().Value = run.VideoID
		row.AddCell().Value = string(run.Status)
		if run.Verdict != nil {
			row.AddCell().Value = string(run.Verdict.Decision)
			row.AddCell().SetFloat(run.Verdict.Probability)
			row.AddCell().Value = string(run.Verdict.Reason)
			row.AddCell().Value = levelList(run.Verdict.TriggeredFlags)
		} else {
			row.AddCell()
			row.AddCell()
			row.AddCell()
			row.AddCell()
		}
		row.AddCell().Value = run.Error
	}

	detail, err := file.AddSheet("levels")
	if err != nil {
		return eris.Wrap(err, "report: add levels sheet")
	}
	header = detail.AddRow()
	for _, h := range []string{"run_id", "video_id", "level", "status", "score", "support", "flagged", "reasons"} {
		header.AddCell().Value = h
	}
	for _, run := range runs {
		if run.Verdict == nil {
			continue
		}
		for _, lr := range run.Verdict.Levels {
			row := detail.AddRow()
			row.AddCell().Value = run.ID
			row.AddCell().Value = run.VideoID
			row.AddCell().Value = lr.Level.String()
			row.AddCell().Value = string(lr.Status)
			if lr.Status == model.LevelEvaluated {
				row.AddCell().SetFloat(lr.Score)
				row.AddCell().SetInt(lr.Support)
				row.AddCell().SetBool(lr.Suspicious)
			} else {
				row.AddCell()
				row.AddCell()
				row.AddCell()
			}
			row.AddCell().Value = strings.Join(lr.Reasons, ",")
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func levelList(levels []model.Level) string {
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.String()
	}
	return strings.Join(names, ",")
}
