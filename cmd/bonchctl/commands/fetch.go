package commands

import (
	"fmt"
	"os"
	"time"

	"bonchassist-backend/internal/timetable"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the timetable of every group and save it as the snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		out, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if out == "" {
			out = g.Config.Snapshot
		}

		client, err := g.client()
		if err != nil {
			return err
		}

		pw := progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetTrackerLength(30)
		pw.SetUpdateFrequency(100 * time.Millisecond)
		pw.SetStyle(progress.StyleBlocks)
		pw.Style().Visibility.ETA = true
		pw.Style().Visibility.Percentage = true

		tracker := &progress.Tracker{Message: "Группы", Units: progress.UnitsDefault}
		pw.AppendTracker(tracker)
		go pw.Render()

		aggregator := timetable.NewAggregator(client, timetable.AggregatorOptions{
			ConcurrencyLimit: g.Config.ConcurrencyLimit,
			OnProgress: func(done, total int) {
				tracker.UpdateTotal(int64(total))
				tracker.SetValue(int64(done))
			},
		}, g.Tel)

		cache := timetable.NewCache(out)
		agg, err := cache.Refresh(cmd.Context(), aggregator)
		if err != nil {
			tracker.MarkAsErrored()
		} else {
			tracker.MarkAsDone()
		}
		for pw.IsRenderInProgress() {
			pw.Stop()
			time.Sleep(50 * time.Millisecond)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s %d groups to %s\n", accentStyle.Render("Saved"), agg.Len(), out)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "", "Snapshot path, defaults to the configured snapshot.")
	rootCmd.AddCommand(fetchCmd)
}
