package db

type User struct {
	TelegramID int64
	Login      string
	Password   string
	GroupName  string
	Autostart  bool
	UpdatedAt  int64
}
