package records

import (
	"context"

	"terradjunto/internal/models"
)

// Summary counts one collection's records per workflow status.
type Summary struct {
	Collection string         `json:"collection"`
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
}

// ReportRow is one line of the exported report.
type ReportRow struct {
	Collection string
	Status     string
	Count      int
}

func summarize[S ~string](name string, statuses []S, current []S) Summary {
	sum := Summary{Collection: name, Total: len(current), ByStatus: make(map[string]int, len(statuses))}
	for _, st := range statuses {
		sum.ByStatus[string(st)] = 0
	}
	for _, st := range current {
		sum.ByStatus[string(st)]++
	}
	return sum
}

func statusesOf[T any, S ~string](items []T, get func(T) S) []S {
	out := make([]S, len(items))
	for i, it := range items {
		out[i] = get(it)
	}
	return out
}

// Report summarizes the three citizen workflows.
func Report(ctx context.Context, inc *Incidents, waste *Waste, part *Participation) []Summary {
	return []Summary{
		summarize(inc.Name(), models.IncidentStatuses,
			statusesOf(inc.List(ctx), func(r models.Incident) models.IncidentStatus { return r.Status })),
		summarize(waste.Name(), models.WasteStatuses,
			statusesOf(waste.List(ctx), func(r models.WasteRequest) models.WasteStatus { return r.Status })),
		summarize(part.Name(), models.ParticipationStatuses,
			statusesOf(part.List(ctx), func(r models.Participation) models.ParticipationStatus { return r.Status })),
	}
}

// ReportRows flattens summaries in workflow order for CSV export.
func ReportRows(sums []Summary) []ReportRow {
	order := map[string][]string{
		"incidents":     stringsOf(models.IncidentStatuses),
		"waste":         stringsOf(models.WasteStatuses),
		"participation": stringsOf(models.ParticipationStatuses),
	}
	var rows []ReportRow
	for _, s := range sums {
		for _, st := range order[s.Collection] {
			rows = append(rows, ReportRow{Collection: s.Collection, Status: st, Count: s.ByStatus[st]})
		}
		rows = append(rows, ReportRow{Collection: s.Collection, Status: "total", Count: s.Total})
	}
	return rows
}

func stringsOf[S ~string](xs []S) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}
