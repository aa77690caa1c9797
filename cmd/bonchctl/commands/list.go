package commands

import (
	"fmt"
	"strings"

	"bonchassist-backend/internal/scrapers/sut"

	"github.com/charmbracelet/huh/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the groups, teachers or rooms known to the portal.",
}

func newListCmd(use string, kind sut.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [filter]",
		Short: fmt.Sprintf("List the %s known to the portal.", use),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := getGlobals(cmd.Context())
			client, err := g.client()
			if err != nil {
				return err
			}

			var listing sut.Listing
			_ = spinner.New().
				Title(fmt.Sprintf("Fetching the %s...", use)).
				Action(func() {
					listing, err = client.Directory().List(cmd.Context(), kind)
				}).
				Run()
			if err != nil {
				return err
			}

			filter := ""
			if len(args) > 0 {
				filter = strings.ToLower(args[0])
			}

			t := newTable()
			t.AppendHeader(table.Row{"ID", "Name"})
			for _, e := range listing.Entries() {
				if filter != "" && !strings.Contains(strings.ToLower(e.Name), filter) {
					continue
				}
				t.AppendRow(table.Row{e.ID, e.Name})
			}
			t.Render()
			return nil
		},
	}
}

func init() {
	listCmd.AddCommand(
		newListCmd("groups", sut.KindGroup),
		newListCmd("teachers", sut.KindTeacher),
		newListCmd("rooms", sut.KindClassroom),
	)
	rootCmd.AddCommand(listCmd)
}
