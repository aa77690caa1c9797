package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bonchassist-backend/internal/attendance"
	"bonchassist-backend/internal/components/chrono"
	"bonchassist-backend/internal/scrapers/sut"

	"github.com/charmbracelet/huh/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("the portal rejected the login or password")

var visitCmd = &cobra.Command{
	Use:   "visit",
	Short: "Mark attendance with the configured account until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		ctx := cmd.Context()

		login := g.Config.Credentials.Login
		password := g.Config.Credentials.Password
		if flag, _ := cmd.Flags().GetString("login"); flag != "" {
			login = flag
		}
		if flag, _ := cmd.Flags().GetString("password"); flag != "" {
			password = flag
		}
		if login == "" || password == "" {
			return fmt.Errorf("credentials.login and credentials.password must be set")
		}

		options, err := g.Config.SessionOptions()
		if err != nil {
			return err
		}
		policy, err := g.Config.AttendancePolicy()
		if err != nil {
			return err
		}
		if anytime, _ := cmd.Flags().GetBool("anytime"); anytime {
			policy.Gate = nil
		}
		clock, err := chrono.NewStandardTime(g.Config.Timezone)
		if err != nil {
			return err
		}

		session, err := sut.NewSession(options, g.Tel)
		if err != nil {
			return err
		}
		reauth := func(ctx context.Context) error {
			if !session.Login(ctx, login, password) {
				return errRejected
			}
			return nil
		}

		_ = spinner.New().
			Title(fmt.Sprintf("Logging in as %s...", login)).
			Action(func() {
				err = reauth(ctx)
			}).
			Run()
		if err != nil {
			return err
		}

		clicker := attendance.NewClicker(session, reauth, policy, clock, g.Tel)
		clicker.Start(ctx)
		slog.Info("clicker started", "login", login, "interval", policy.Interval)
		clicker.Wait()

		stats := clicker.Stats()
		t := newTable()
		t.AppendHeader(table.Row{"Ticks", "Clicks", "Last tick", "Last error"})
		lastTick := "-"
		if !stats.LastTick.IsZero() {
			lastTick = stats.LastTick.In(clock.Location()).Format(time.DateTime)
		}
		t.AppendRow(table.Row{stats.Ticks, stats.Clicks, lastTick, stats.LastError})
		t.Render()

		if ctx.Err() == nil {
			return fmt.Errorf("clicker stopped: %s", stats.LastError)
		}
		return nil
	},
}

func init() {
	visitCmd.Flags().String("login", "", "Portal login, overrides credentials.login.")
	visitCmd.Flags().String("password", "", "Portal password, overrides credentials.password.")
	visitCmd.Flags().Bool("anytime", false, "Check the attendance page outside of lesson hours too.")
	rootCmd.AddCommand(visitCmd)
}
