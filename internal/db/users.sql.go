package db

import (
	"context"
)

const deleteUser = `-- name: DeleteUser :exec
delete from users where telegram_id = ?
`

func (q *Queries) DeleteUser(ctx context.Context, telegramID int64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, telegramID)
	return err
}

const getUser = `-- name: GetUser :one
select telegram_id, login, password, group_name, autostart, updated_at from users
where telegram_id = ?
`

func (q *Queries) GetUser(ctx context.Context, telegramID int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, telegramID)
	var i User
	err := row.Scan(
		&i.TelegramID,
		&i.Login,
		&i.Password,
		&i.GroupName,
		&i.Autostart,
		&i.UpdatedAt,
	)
	return i, err
}

const listUsers = `-- name: ListUsers :many
select telegram_id, login, password, group_name, autostart, updated_at from users
order by telegram_id
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	return q.listUsers(ctx, listUsers)
}

func (q *Queries) listUsers(ctx context.Context, query string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(
			&i.TelegramID,
			&i.Login,
			&i.Password,
			&i.GroupName,
			&i.Autostart,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setAutostart = `-- name: SetAutostart :exec
update users set autostart = ?, updated_at = ?
where telegram_id = ?
`

type SetAutostartParams struct {
	Autostart  bool
	UpdatedAt  int64
	TelegramID int64
}

func (q *Queries) SetAutostart(ctx context.Context, arg SetAutostartParams) error {
	_, err := q.db.ExecContext(ctx, setAutostart, arg.Autostart, arg.UpdatedAt, arg.TelegramID)
	return err
}

const setGroup = `-- name: SetGroup :exec
update users set group_name = ?, updated_at = ?
where telegram_id = ?
`

type SetGroupParams struct {
	GroupName  string
	UpdatedAt  int64
	TelegramID int64
}

func (q *Queries) SetGroup(ctx context.Context, arg SetGroupParams) error {
	_, err := q.db.ExecContext(ctx, setGroup, arg.GroupName, arg.UpdatedAt, arg.TelegramID)
	return err
}

const upsertUser = `-- name: UpsertUser :exec
insert into users(telegram_id, login, password, updated_at)
values (?, ?, ?, ?)
on conflict (telegram_id) do update set
    login = excluded.login,
    password = excluded.password,
    updated_at = excluded.updated_at
`

type UpsertUserParams struct {
	TelegramID int64
	Login      string
	Password   string
	UpdatedAt  int64
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser,
		arg.TelegramID,
		arg.Login,
		arg.Password,
		arg.UpdatedAt,
	)
	return err
}
