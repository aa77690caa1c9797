package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bonchassist-backend/internal/attendance"

	"golang.org/x/sync/errgroup"
)

var errLoginRejected = errors.New("the portal rejected the login or password")

// user is the in-memory state of one Telegram user.
type user struct {
	// loginMu serializes logins of the same user.
	loginMu sync.Mutex

	mu      sync.Mutex
	clicker *attendance.Clicker
}

func (u *user) currentClicker() *attendance.Clicker {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.clicker
}

func (b *Bot) user(id int64) *user {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		u = &user{}
		b.users[id] = u
	}
	return u
}

// loggedIn returns the user's clicker, or nil when the user has no live
// portal session.
func (b *Bot) loggedIn(id int64) *attendance.Clicker {
	b.mu.Lock()
	u, ok := b.users[id]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return u.currentClicker()
}

// newClicker logs a fresh portal session in and wraps it in a clicker that
// logs in again with the same credentials when the session expires.
func (b *Bot) newClicker(ctx context.Context, login, password string) (*attendance.Clicker, error) {
	account, err := b.newAccount()
	if err != nil {
		return nil, err
	}
	if !account.Login(ctx, login, password) {
		return nil, errLoginRejected
	}

	reauth := func(ctx context.Context) error {
		if !account.Login(ctx, login, password) {
			return errLoginRejected
		}
		return nil
	}
	return attendance.NewClicker(account, reauth, b.options.Policy, b.clock, b.tel), nil
}

// login opens a new portal session for the user and replaces the previous
// one. A clicker that was running keeps running on the new session.
func (b *Bot) login(ctx context.Context, id int64, login, password string) error {
	u := b.user(id)
	u.loginMu.Lock()
	defer u.loginMu.Unlock()

	clicker, err := b.newClicker(ctx, login, password)
	if err != nil {
		return err
	}

	u.mu.Lock()
	previous := u.clicker
	u.clicker = clicker
	u.mu.Unlock()

	if previous != nil && previous.Stop() {
		clicker.Start(b.ctx)
	}
	return nil
}

// logout forgets the user's portal session and stops its clicker.
func (b *Bot) logout(id int64) {
	b.mu.Lock()
	u, ok := b.users[id]
	delete(b.users, id)
	b.mu.Unlock()
	if !ok {
		return
	}

	u.loginMu.Lock()
	defer u.loginMu.Unlock()
	if c := u.currentClicker(); c != nil {
		c.Stop()
	}
}

// StartAccount logs in an account that belongs to no Telegram user and
// starts its clicker. The clicker runs until Shutdown.
func (b *Bot) StartAccount(ctx context.Context, login, password string) (*attendance.Clicker, error) {
	clicker, err := b.newClicker(ctx, login, password)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.accounts = append(b.accounts, clicker)
	b.mu.Unlock()
	clicker.Start(b.ctx)
	return clicker, nil
}

// Restore logs in every stored user and restarts the clickers that were
// running before the bot stopped.
func (b *Bot) Restore(ctx context.Context) error {
	users, err := b.qry.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for _, stored := range users {
		eg.Go(func() error {
			err := b.login(egctx, stored.TelegramID, stored.Login, stored.Password)
			if err != nil {
				b.tel.ReportWarning(report_bot_restore, stored.TelegramID, err)
				return nil
			}
			if stored.Autostart {
				b.loggedIn(stored.TelegramID).Start(b.ctx)
			}
			return nil
		})
	}
	return eg.Wait()
}
