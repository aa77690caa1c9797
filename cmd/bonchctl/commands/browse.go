package commands

import (
	"errors"
	"fmt"

	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

type browseAction int

const (
	actionPrevious browseAction = iota
	actionNext
	actionCurrent
	actionOther
	actionQuit
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the saved timetable interactively.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		agg, err := g.snapshot()
		if err != nil {
			return err
		}
		current, err := g.currentWeek()
		if err != nil {
			return err
		}

		err = browse(agg, current)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func browse(agg timetable.Aggregate, current int) error {
	for {
		kind, name, err := pickEntity(agg)
		if err != nil {
			return err
		}
		lessons, err := fromSnapshot(agg, kind, name)
		if err != nil {
			return err
		}

		again, err := browseWeeks(kind, name, lessons, current)
		if err != nil || !again {
			return err
		}
	}
}

func pickEntity(agg timetable.Aggregate) (sut.Kind, string, error) {
	var kind sut.Kind
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[sut.Kind]().
				Title("Timetable of").
				Options(
					huh.NewOption("Group", sut.KindGroup),
					huh.NewOption("Teacher", sut.KindTeacher),
					huh.NewOption("Room", sut.KindClassroom),
				).
				Value(&kind),
		),
	).WithTheme(theme()).Run()
	if err != nil {
		return 0, "", err
	}

	var names []string
	switch kind {
	case sut.KindGroup:
		names = agg.GroupNames()
	case sut.KindTeacher:
		names = timetable.TeacherNames(agg)
	default:
		names = timetable.RoomNames(agg)
	}
	if len(names) == 0 {
		return 0, "", fmt.Errorf("the snapshot has no %s entries", kind)
	}

	var name string
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Pick a %s", kind)).
				Options(huh.NewOptions(names...)...).
				Filtering(true).
				Height(12).
				Value(&name),
		),
	).WithTheme(theme()).Run()
	return kind, name, err
}

// browseWeeks pages through the weeks of one entity. It reports whether the
// user wants to pick another entity.
func browseWeeks(kind sut.Kind, name string, lessons []timetable.Lesson, current int) (bool, error) {
	week := current
	for {
		fmt.Println(accentStyle.Render(fmt.Sprintf("%s %s, week %d", kind, name, week)))
		fmt.Println()
		fmt.Println(timetable.Render(lessons, &week))
		fmt.Println()

		var options []huh.Option[browseAction]
		if week > 0 {
			options = append(options, huh.NewOption("Previous week", actionPrevious))
		}
		if week < maxWeek {
			options = append(options, huh.NewOption("Next week", actionNext))
		}
		options = append(options,
			huh.NewOption("This week", actionCurrent),
			huh.NewOption("Another timetable", actionOther),
			huh.NewOption("Quit", actionQuit),
		)

		action := actionNext
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[browseAction]().
					Title(mutedStyle.Render("Navigate")).
					Options(options...).
					Value(&action),
			),
		).WithTheme(theme()).Run()
		if err != nil {
			return false, err
		}

		switch action {
		case actionPrevious:
			week = clampWeek(week - 1)
		case actionNext:
			week = clampWeek(week + 1)
		case actionCurrent:
			week = current
		case actionOther:
			return true, nil
		case actionQuit:
			return false, nil
		}
	}
}
