package roomctl

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"roomdesk/pkg/client"
	"roomdesk/pkg/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// parseDateInput accepts "today", "tomorrow" or YYYY-MM-DD.
func parseDateInput(input string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return "", fmt.Errorf("date is required")
	case "today":
		return now.Format(dateLayout), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(dateLayout), nil
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(input))
	if err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", input)
	}
	return parsed.Format(dateLayout), nil
}

func roomsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List bookable rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rooms, err := app.client().Rooms(cmd.Context())
			if err != nil {
				return err
			}
			ids, names := make([]string, len(rooms)), make([]string, len(rooms))
			for i, r := range rooms {
				ids[i], names[i] = r.ID, r.Name
			}
			return app.render(rooms, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tNAME")
				if len(ids) > 0 {
					fmt.Fprintln(w, joinPairs(ids, names))
				}
			})
		},
	}
}

func teamsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List teams that can book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teams, err := app.client().Teams(cmd.Context())
			if err != nil {
				return err
			}
			ids, names := make([]string, len(teams)), make([]string, len(teams))
			for i, t := range teams {
				ids[i], names[i] = t.ID, t.Name
			}
			return app.render(teams, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tNAME")
				if len(ids) > 0 {
					fmt.Fprintln(w, joinPairs(ids, names))
				}
			})
		},
	}
}

func statusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether each room is free right now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := app.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(statuses, func(w *tabwriter.Writer) { printStatuses(w, statuses) })
		},
	}
}

func windowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "window",
		Short: "Show which dates and times can be booked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bw, err := app.client().BookingWindow(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(bw, func(w *tabwriter.Writer) { printWindow(w, bw) })
		},
	}
}

func listCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list ROOM",
		Short: "List a room's reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				var err error
				if date, err = parseDateInput(date, app.Now()); err != nil {
					return err
				}
			}
			list, err := app.client().List(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			return app.render(list, func(w *tabwriter.Writer) { printReservations(w, list) })
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only this date (today, tomorrow or YYYY-MM-DD)")
	return cmd
}

type checkResult struct {
	Available bool           `json:"available"`
	Reason    string         `json:"reason,omitempty"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func checkCmd(app *App) *cobra.Command {
	var date, start, end, exclude string

	cmd := &cobra.Command{
		Use:   "check ROOM",
		Short: "Check whether a slot could be booked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDateInput(date, app.Now())
			if err != nil {
				return err
			}

			err = app.client().Check(cmd.Context(), args[0], model.SlotCheck{
				Date:                 day,
				StartTime:            start,
				EndTime:              end,
				ExcludeReservationID: exclude,
			})

			var apiErr *client.APIError
			result := checkResult{Available: err == nil}
			switch {
			case err == nil:
			case errors.As(err, &apiErr) && apiErr.Reason() != "":
				result.Reason = apiErr.Reason()
				result.Message = apiErr.Message
				result.Details = apiErr.Details
			default:
				return err
			}

			if err := app.render(result, func(w *tabwriter.Writer) {
				if result.Available {
					fmt.Fprintf(w, "%s %s-%s is available.\n", day, start, end)
					return
				}
				fmt.Fprintf(w, "Unavailable:\t%s\n", result.Message)
				fmt.Fprintf(w, "Reason:\t%s\n", result.Reason)
			}); err != nil {
				return err
			}
			if !result.Available {
				return ErrUnavailable
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "Date (today, tomorrow or YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "End time HH:MM")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Reservation ID to ignore, when checking an edit")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func bookCmd(app *App) *cobra.Command {
	var team, date, start, end, password string

	cmd := &cobra.Command{
		Use:   "book ROOM",
		Short: "Book a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDateInput(date, app.Now())
			if err != nil {
				return err
			}
			pw, err := app.password(password)
			if err != nil {
				return err
			}

			res, err := app.client().Create(cmd.Context(), args[0], &model.ReservationRequest{
				TeamID:    team,
				Date:      day,
				StartTime: start,
				EndTime:   end,
				Password:  pw,
			}, uuid.NewString())
			if err != nil {
				return err
			}

			app.record(res)
			return app.render(res, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "Booked.")
				printReservation(w, res)
			})
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Team ID")
	cmd.Flags().StringVar(&date, "date", "today", "Date (today, tomorrow or YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "End time HH:MM")
	cmd.Flags().StringVar(&password, "password", "", "Password needed later to edit or cancel (prompted when empty)")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func editCmd(app *App) *cobra.Command {
	var team, date, start, end, password string

	cmd := &cobra.Command{
		Use:   "edit ROOM ID",
		Short: "Change a reservation's team, date or times",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := &model.ReservationPatch{}
			flags := cmd.Flags()
			if flags.Changed("team") {
				patch.TeamID = &team
			}
			if flags.Changed("date") {
				day, err := parseDateInput(date, app.Now())
				if err != nil {
					return err
				}
				patch.Date = &day
			}
			if flags.Changed("start") {
				patch.StartTime = &start
			}
			if flags.Changed("end") {
				patch.EndTime = &end
			}
			if patch.TeamID == nil && patch.Date == nil && patch.StartTime == nil && patch.EndTime == nil {
				return fmt.Errorf("nothing to change: pass --team, --date, --start or --end")
			}

			pw, err := app.password(password)
			if err != nil {
				return err
			}
			patch.Password = pw

			res, err := app.client().Edit(cmd.Context(), args[0], args[1], patch)
			if err != nil {
				return err
			}

			app.record(res)
			return app.render(res, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "Updated.")
				printReservation(w, res)
			})
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "New team ID")
	cmd.Flags().StringVar(&date, "date", "", "New date (today, tomorrow or YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "New start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "New end time HH:MM")
	cmd.Flags().StringVar(&password, "password", "", "Reservation password (prompted when empty)")
	return cmd
}

func cancelCmd(app *App) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "cancel [ROOM] ID",
		Short: "Cancel a reservation",
		Long:  "Cancel a reservation. With only an ID, the room is looked up in the local ledger.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, id, err := app.resolveReservation(args)
			if err != nil {
				return err
			}
			pw, err := app.password(password)
			if err != nil {
				return err
			}

			if err := app.client().Cancel(cmd.Context(), roomID, id, pw); err != nil {
				return err
			}
			app.forget(id)

			result := map[string]string{"id": id, "room_id": roomID, "status": "cancelled"}
			return app.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Cancelled %s in %s.\n", id, roomID)
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Reservation password (prompted when empty)")
	return cmd
}

func mineCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List reservations booked from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := app.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			filter := LedgerFilter{}
			if !all {
				filter.From = app.Now().Format(dateLayout)
			}
			entries, err := ledger.List(filter)
			if err != nil {
				return err
			}
			return app.render(entries, func(w *tabwriter.Writer) { printEntries(w, entries) })
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include past reservations")
	return cmd
}

func (a *App) resolveReservation(args []string) (roomID, id string, err error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}

	ledger, err := a.openLedger()
	if err != nil {
		return "", "", err
	}
	defer ledger.Close()

	entry, err := ledger.Get(args[0])
	if err != nil {
		return "", "", fmt.Errorf("%w: pass the room ID as well", err)
	}
	return entry.RoomID, entry.ID, nil
}

// record and forget mirror a successful call into the ledger. Ledger
// failures only warn.
func (a *App) record(res *model.Reservation) {
	ledger, err := a.openLedger()
	if err != nil {
		fmt.Fprintln(a.Err, "Warning: could not open local ledger:", err)
		return
	}
	defer ledger.Close()
	if err := ledger.Save(EntryFrom(res, a.server)); err != nil {
		fmt.Fprintln(a.Err, "Warning: could not record reservation locally:", err)
	}
}

func (a *App) forget(id string) {
	ledger, err := a.openLedger()
	if err != nil {
		fmt.Fprintln(a.Err, "Warning: could not open local ledger:", err)
		return
	}
	defer ledger.Close()
	if _, err := ledger.Remove(id); err != nil {
		fmt.Fprintln(a.Err, "Warning: could not update local ledger:", err)
	}
}
