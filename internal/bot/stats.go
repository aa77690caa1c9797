package bot

import (
	"bonchassist-backend/internal/attendance"
	"bonchassist-backend/internal/components/telemetry"
)

// Counts is a point in time view of the accounts the bot drives.
type Counts struct {
	Users    int64
	Clickers int64
	Clicks   int64
}

func (b *Bot) Counts() Counts {
	b.mu.Lock()
	clickers := make([]*attendance.Clicker, 0, len(b.users)+len(b.accounts))
	var out Counts
	for _, u := range b.users {
		// a failed login leaves a user without a clicker
		if c := u.currentClicker(); c != nil {
			clickers = append(clickers, c)
			out.Users++
		}
	}
	clickers = append(clickers, b.accounts...)
	b.mu.Unlock()

	for _, c := range clickers {
		if c.Status() == attendance.Running {
			out.Clickers++
		}
		out.Clicks += c.Stats().Clicks
	}
	return out
}

// Gauges exposes Counts to telemetry.RecordStats.
func (b *Bot) Gauges() []telemetry.Gauge {
	return []telemetry.Gauge{
		{Name: "bot.users", Read: func() int64 { return b.Counts().Users }},
		{Name: "bot.clickers_running", Read: func() int64 { return b.Counts().Clickers }},
		{Name: "bot.clicks", Read: func() int64 { return b.Counts().Clicks }},
	}
}
