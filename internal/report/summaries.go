package report

import (
	"fmt"
	"sort"
	"time"

	"supplychain/internal/normalizer"
	"supplychain/internal/tasks"
	"supplychain/internal/warehouse"
)

// Sources summarizes one run, one row per source.
func Sources(reports []*normalizer.Report) *Table {
	t := NewTable("Sources", "Source", "Status", "Fetched", "Accepted", "Rejected", "Skip rate", "Issues", "Rows", "Duration").
		RightAlign(2, 3, 4, 5, 6, 7, 8)

	var fetched, accepted, rejected, issues, rows int

	for _, r := range reports {
		status := "ok"
		if r.Failed() {
			status = "FAILED: " + r.Error
		}

		n := 0
		for _, c := range r.Tables {
			n += c
		}

		t.Add(r.Source, status, r.Fetched, r.Accepted, r.Rejected,
			fmt.Sprintf("%.1f%%", r.SkipRate()*100), r.IssueCount(), n, r.Duration.Round(time.Millisecond))

		fetched += r.Fetched
		accepted += r.Accepted
		rejected += r.Rejected
		issues += r.IssueCount()
		rows += n
	}

	t.SetFooter("TOTAL", "", fetched, accepted, rejected, "", issues, rows, "")

	return t
}

// Issues lists the data-quality issue counts of one source by field.
func Issues(r *normalizer.Report) *Table {
	t := NewTable(fmt.Sprintf("Data quality: %s", r.Source), "Field", "Issues").RightAlign(1)

	for _, field := range r.IssueFields() {
		t.Add(field, r.Issues[field])
	}

	return t
}

// Rejections lists the sampled rejected records of one source.
func Rejections(r *normalizer.Report) *Table {
	t := NewTable(fmt.Sprintf("Rejected records: %s (%d)", r.Source, r.Rejected), "Index", "Reason").RightAlign(0)

	for _, s := range r.Rejections {
		t.Add(s.Index, s.Reason)
	}

	return t
}

// Counts renders warehouse row counts with a total.
func Counts(counts []warehouse.TableCount) *Table {
	t := NewTable("Warehouse", "Table", "Source", "Group", "Rows").RightAlign(3)

	var total int64

	for _, c := range counts {
		t.Add(c.Table, c.Source, c.Group, c.Rows)
		total += c.Rows
	}

	t.SetFooter("TOTAL", "", "", total)

	return t
}

// Orphans renders dangling soft references.
func Orphans(orphans []warehouse.Orphan) *Table {
	t := NewTable("Orphan references", "Table", "Column", "Parent", "Rows", "Samples").RightAlign(3)

	for _, o := range orphans {
		t.Add(o.Table, o.Column, o.Parent, o.Rows, fmt.Sprint(o.Samples))
	}

	return t
}

// Tasks renders the task registry.
func Tasks(list []warehouse.Task) *Table {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	t := NewTable("Tasks", "Task", "State", "Schedule", "Updated")

	for _, task := range list {
		t.Add(task.Name, task.State, task.Schedule, task.UpdatedAt.Format(time.RFC3339))
	}

	return t
}

// TaskTests renders the outcome of running catalog queries.
func TaskTests(results []tasks.TestResult) *Table {
	t := NewTable("Query tests", "ID", "Status", "Rows", "Sentinel", "Question").RightAlign(0, 2)

	for _, r := range results {
		status := r.Status
		if r.Err != nil {
			status += ": " + r.Err.Error()
		}

		flag := ""
		if r.Problematic {
			flag = "yes"
		}

		t.Add(r.ID, status, r.Rows, flag, r.Question)
	}

	return t
}
