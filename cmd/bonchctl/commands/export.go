package commands

import (
	"fmt"
	"os"
	"strings"

	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <group>",
	Short: "Export the timetable of a group to an ICS file.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		group := strings.Join(args, " ")
		output, _ := cmd.Flags().GetString("output")
		live, _ := cmd.Flags().GetBool("live")
		if output == "" {
			output = group + ".ics"
		}

		var lessons []timetable.Lesson
		var err error
		if live {
			lessons, err = fromPortal(cmd.Context(), g, sut.KindGroup, group)
		} else {
			var agg timetable.Aggregate
			agg, err = g.snapshot()
			if err != nil {
				return err
			}
			lessons, err = fromSnapshot(agg, sut.KindGroup, group)
		}
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("week") {
			week, _ := cmd.Flags().GetInt("week")
			lessons = timetable.InWeek(lessons, clampWeek(week))
		}

		location, err := g.Config.Location()
		if err != nil {
			return err
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()

		n, err := timetable.ExportICS(file, lessons, location, nowIn(location))
		if err != nil {
			return fmt.Errorf("generate ics: %w", err)
		}
		fmt.Printf("%s %d lessons to %s\n", accentStyle.Render("Exported"), n, output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file, defaults to <group>.ics.")
	exportCmd.Flags().IntP("week", "w", 0, "Export a single week.")
	exportCmd.Flags().Bool("live", false, "Fetch from the portal instead of the snapshot.")
	rootCmd.AddCommand(exportCmd)
}
