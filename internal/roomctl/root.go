// Package roomctl is the command-line client for the reservation API.
package roomctl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"roomdesk/pkg/client"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	EnvServer     = "ROOMDESK_URL"
	DefaultServer = "http://localhost:8080"
)

// ErrUnavailable is returned by check when the slot would be rejected. The
// result has already been printed.
var ErrUnavailable = errors.New("slot unavailable")

// App carries the command dependencies so tests can swap the terminal,
// clock and ledger location.
type App struct {
	Out    io.Writer
	Err    io.Writer
	Now    func() time.Time
	Prompt func(label string) (string, error)

	server     string
	timeout    time.Duration
	ledgerPath string
	json       bool

	api *client.ReservationClient
}

func NewApp() *App {
	return &App{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Now:    time.Now,
		Prompt: promptPassword,
	}
}

func (a *App) client() *client.ReservationClient {
	if a.api == nil {
		a.api = client.NewReservationClient(client.NewHttpClient(a.server, a.timeout))
	}
	return a.api
}

func (a *App) openLedger() (*Ledger, error) {
	path := a.ledgerPath
	if path == "" {
		var err error
		if path, err = DefaultLedgerPath(); err != nil {
			return nil, err
		}
	}
	return OpenLedger(path)
}

// password returns the flag value, or prompts without echo.
func (a *App) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	pw, err := a.Prompt("Password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", fmt.Errorf("password is required")
	}
	return pw, nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password is required (use --password when not on a terminal)")
	}
	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func NewRootCommand(app *App) *cobra.Command {
	server := os.Getenv(EnvServer)
	if server == "" {
		server = DefaultServer
	}

	root := &cobra.Command{
		Use:           "roomctl",
		Short:         "Book meeting rooms from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().StringVar(&app.server, "server", server, "Reservation API base URL (env "+EnvServer+")")
	root.PersistentFlags().DurationVar(&app.timeout, "timeout", 10*time.Second, "HTTP request timeout")
	root.PersistentFlags().StringVar(&app.ledgerPath, "ledger", "", "Local ledger path (default ~/.config/roomdesk/reservations.db)")
	root.PersistentFlags().BoolVar(&app.json, "json", false, "Output JSON")

	root.AddCommand(
		roomsCmd(app),
		teamsCmd(app),
		statusCmd(app),
		windowCmd(app),
		listCmd(app),
		checkCmd(app),
		bookCmd(app),
		editCmd(app),
		cancelCmd(app),
		mineCmd(app),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	app := NewApp()
	if err := NewRootCommand(app).Execute(); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			fmt.Fprintln(app.Err, "Error:", describe(err))
		}
		os.Exit(1)
	}
}

func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Reason() != "" {
		return fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Reason())
	}
	return err.Error()
}
