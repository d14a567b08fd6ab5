package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"seatcap/internal/model"
	"seatcap/internal/schedule"
	"seatcap/internal/workflow"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders a finished run as a two-column table.
func printResult(w io.Writer, res workflow.Result) {
	bold := color.New(color.Bold)
	ok := color.New(color.FgGreen, color.Bold)

	_, _ = ok.Fprintln(w, res.Message)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("stage"), res.Stage.String())
	tbl.AddRow(bold.Sprint("event"), res.Event)
	tbl.AddRow(bold.Sprint("event time"), orDash(res.EventTime))
	tbl.AddRow(bold.Sprint("score"), res.Score)
	tbl.AddRow(bold.Sprint("took"), res.Duration.Round(time.Millisecond))
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(w, tbl)
}

// printSchedules lists each job with its next tick and the class date
// that tick would target.
func printSchedules(w io.Writer, jobs []*schedule.Job, now time.Time) {
	if len(jobs) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(w, " no schedules configured")
		return
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("NAME"), bold.Sprint("CRON"), bold.Sprint("NEXT RUN"), bold.Sprint("CLASS"), bold.Sprint("CAPACITY"))
	for _, j := range jobs {
		next, err := j.Next(now)
		if err != nil {
			tbl.AddRow(j.Config.Name, j.Config.Cron, faint.Sprint(err.Error()), "", "")
			continue
		}
		class := "-"
		if t, err := j.Target(next); err == nil {
			class = describeClass(t)
		}
		tbl.AddRow(j.Config.Name, j.Config.Cron, next.Format("Mon 2006-01-02 15:04"), class, j.Config.Capacity)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func describeClass(t model.Target) string {
	s := t.Date.Format("Mon 2006-01-02") + " " + t.Time
	if t.Name != "" {
		s += " " + t.Name
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
