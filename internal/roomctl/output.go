package roomctl

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"roomdesk/pkg/model"
)

// render writes v as indented JSON under --json, otherwise runs text
// against an aligned table writer.
func (a *App) render(v any, text func(w *tabwriter.Writer)) error {
	if a.json {
		encoder := json.NewEncoder(a.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func printReservations(w *tabwriter.Writer, list []*model.Reservation) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No reservations.")
		return
	}
	fmt.Fprintln(w, "ID\tDATE\tSTART\tEND\tTEAM")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.StartTime, r.EndTime, r.TeamID)
	}
}

func printReservation(w *tabwriter.Writer, r *model.Reservation) {
	fmt.Fprintf(w, "ID:\t%s\n", r.ID)
	fmt.Fprintf(w, "Room:\t%s\n", r.RoomID)
	fmt.Fprintf(w, "Team:\t%s\n", r.TeamID)
	fmt.Fprintf(w, "When:\t%s %s-%s\n", r.Date, r.StartTime, r.EndTime)
}

func printStatuses(w *tabwriter.Writer, statuses []model.RoomStatus) {
	fmt.Fprintln(w, "ROOM\tSTATUS\tTEAM")
	for _, s := range statuses {
		name := s.RoomName
		if name == "" {
			name = s.RoomID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, s.Text, s.TeamName)
	}
}

func printWindow(w *tabwriter.Writer, bw model.BookingWindow) {
	fmt.Fprintf(w, "Dates:\t%s to %s\n", bw.Dates.Min, bw.Dates.Max)
	fmt.Fprintf(w, "Hours:\t%s-%s\n", bw.Open, bw.Close)
	fmt.Fprintf(w, "Minimum:\t%d minutes\n", bw.MinMinutes)
	if len(bw.StartSlots) > 0 {
		fmt.Fprintf(w, "Starts:\t%s ... %s\n", bw.StartSlots[0], bw.StartSlots[len(bw.StartSlots)-1])
	}
}

func printEntries(w *tabwriter.Writer, entries []Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No reservations in the local ledger.")
		return
	}
	fmt.Fprintln(w, "ID\tROOM\tDATE\tSTART\tEND\tTEAM")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.RoomID, e.Date, e.StartTime, e.EndTime, e.TeamID)
	}
}

func joinPairs(ids, names []string) string {
	parts := make([]string, len(ids))
	for i := range ids {
		parts[i] = ids[i] + "\t" + names[i]
	}
	return strings.Join(parts, "\n")
}
