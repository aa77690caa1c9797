package commands

import (
	"fmt"
	"os"
	"strings"

	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the timetable of a group, teacher or room.",
}

func newShowCmd(use string, kind sut.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: fmt.Sprintf("Print the timetable of a %s.", use),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := getGlobals(cmd.Context())
			query := strings.Join(args, " ")

			live, _ := cmd.Flags().GetBool("live")
			all, _ := cmd.Flags().GetBool("all")
			table, _ := cmd.Flags().GetBool("table")
			week, _ := cmd.Flags().GetInt("week")

			var lessons []timetable.Lesson
			var err error
			if live {
				lessons, err = fromPortal(cmd.Context(), g, kind, query)
			} else {
				var agg timetable.Aggregate
				agg, err = g.snapshot()
				if err != nil {
					return err
				}
				lessons, err = fromSnapshot(agg, kind, query)
			}
			if err != nil {
				return err
			}

			var selected *int
			if !all {
				if !cmd.Flags().Changed("week") {
					week, err = g.currentWeek()
					if err != nil {
						return err
					}
				}
				week = clampWeek(week)
				selected = &week
			}

			if table {
				if selected != nil {
					lessons = timetable.InWeek(lessons, *selected)
				}
				timetable.WriteTable(os.Stdout, lessons)
				return nil
			}
			fmt.Println(timetable.Render(lessons, selected))
			return nil
		},
	}
	cmd.Flags().IntP("week", "w", 0, "Week number, defaults to the current week.")
	cmd.Flags().BoolP("all", "a", false, "Print every week.")
	cmd.Flags().BoolP("table", "t", false, "Print a table instead of the agenda.")
	cmd.Flags().Bool("live", false, "Fetch from the portal instead of the snapshot.")
	return cmd
}

func init() {
	showCmd.AddCommand(
		newShowCmd("group", sut.KindGroup),
		newShowCmd("teacher", sut.KindTeacher),
		newShowCmd("room", sut.KindClassroom),
	)
	rootCmd.AddCommand(showCmd)
}
