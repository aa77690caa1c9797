package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulesNext(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	schedules, err := ParseSchedules([]string{"5 9 * * 1-6", "50 12 * * 1-6"})
	require.NoError(t, err)

	table := []struct {
		now      time.Time
		expected time.Time
	}{
		{
			// monday morning
			now:      time.Date(2024, time.September, 2, 8, 0, 0, 0, moscow),
			expected: time.Date(2024, time.September, 2, 9, 5, 0, 0, moscow),
		},
		{
			now:      time.Date(2024, time.September, 2, 9, 5, 0, 0, moscow),
			expected: time.Date(2024, time.September, 2, 12, 50, 0, 0, moscow),
		},
		{
			// saturday evening rolls over sunday
			now:      time.Date(2024, time.September, 7, 20, 0, 0, 0, moscow),
			expected: time.Date(2024, time.September, 9, 9, 5, 0, 0, moscow),
		},
	}

	for _, row := range table {
		require.True(t, row.expected.Equal(schedules.Next(row.now)), "now %v", row.now)
	}

	require.True(t, Schedules(nil).Next(time.Now()).IsZero())

	_, err = ParseSchedules([]string{"not a spec"})
	require.Error(t, err)
}
