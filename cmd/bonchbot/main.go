package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"bonchassist-backend/internal/bot"
	"bonchassist-backend/internal/components/chrono"
	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/config"
	"bonchassist-backend/internal/db"
	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"
	"bonchassist-backend/lib/serviceutil"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// refreshTimeout bounds a full snapshot refresh, fetching every group takes a
// few minutes.
const refreshTimeout = 30 * time.Minute

const statsInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	refreshNow := flag.Bool("refresh", false, "Refresh the timetable snapshot on startup.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := config.Load(*configPath)
	if err != nil {
		telemetry.InitSlog(*verbose)
		serviceutil.Fatal("read config", err)
	}
	InitTelemetry(ctx, *verbose || cfg.Verbose)

	if cfg.Bot.Token == "" {
		serviceutil.Fatal("read config", errors.New("bot.token is not set"))
	}
	location, err := cfg.Location()
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}
	options, err := cfg.SessionOptions()
	if err != nil {
		serviceutil.Fatal("portal options", err)
	}
	policy, err := cfg.AttendancePolicy()
	if err != nil {
		serviceutil.Fatal("attendance policy", err)
	}

	database, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	defer database.Close()

	tel := telemetry.SlogAPI{}
	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}

	cache := timetable.NewCache(cfg.Snapshot)
	err = cache.Load()
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no timetable snapshot yet", "path", cfg.Snapshot)
	} else if err != nil {
		serviceutil.Fatal("load timetable snapshot", err)
	}

	refresh := func() {
		ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()

		session, err := sut.NewSession(options, tel)
		if err != nil {
			slog.Error("refresh snapshot", "err", err)
			return
		}
		aggregator := timetable.NewAggregator(
			sut.NewClient(session, tel),
			timetable.AggregatorOptions{ConcurrencyLimit: cfg.ConcurrencyLimit},
			tel,
		)
		agg, err := cache.Refresh(ctx, aggregator)
		if err != nil {
			slog.Error("refresh snapshot", "err", err)
			return
		}
		slog.Info("timetable snapshot refreshed", "groups", agg.Len())
	}

	cron := chrono.NewStandardCron(tel, location)
	defer cron.Stop()
	err = cron.Cron(cfg.Bot.RefreshSchedule, refresh)
	if err != nil {
		serviceutil.Fatal("schedule snapshot refresh", err)
	}
	if *refreshNow || cache.Current().Len() == 0 {
		go refresh()
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		serviceutil.Fatal("connect to telegram", err)
	}
	api.Debug = cfg.Bot.Debug
	slog.Info("authorized on telegram", "account", api.Self.UserName)

	_, err = api.Request(bot.Commands())
	if err != nil {
		slog.Warn("set bot commands", "err", err)
	}

	b := bot.New(
		ctx,
		api,
		database,
		func() (bot.Account, error) {
			session, err := sut.NewSession(options, tel)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		cache,
		clock,
		bot.Options{
			SemesterStart: options.SemesterStart,
			DefaultGroup:  cfg.GroupName,
			Policy:        policy,
		},
		tel,
	)
	err = b.Restore(ctx)
	if err != nil {
		slog.Error("restore users", "err", err)
	}
	go telemetry.RecordStats(ctx, statsInterval, b.Gauges()...)
	if cfg.Attendance.Enabled {
		creds := cfg.Credentials
		if creds.Login == "" || creds.Password == "" {
			serviceutil.Fatal("start configured account", errors.New("attendance.enabled needs credentials.login and credentials.password"))
		}
		_, err = b.StartAccount(ctx, creds.Login, creds.Password)
		if err != nil {
			slog.Error("start configured account", "login", creds.Login, "err", err)
		} else {
			slog.Info("clicker started for configured account", "login", creds.Login)
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	b.Run(ctx, updates)
	b.Shutdown()
	slog.Info("bot stopped")
}
