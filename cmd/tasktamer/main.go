package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-tamer/internal/app"
	"task-tamer/internal/bot"
	"task-tamer/internal/config"
	"task-tamer/internal/metrics"
	"task-tamer/internal/repository"
	"task-tamer/internal/selector"
	"task-tamer/internal/service"
	"task-tamer/internal/timer"
)

const jobTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	spinRepo := repository.NewSpinRepository(db)
	checkInRepo := repository.NewCheckInRepository(db)
	focusRepo := repository.NewFocusRepository(db)

	taskSvc := service.NewTaskService(taskRepo)
	checkInSvc := service.NewCheckInService(checkInRepo, cfg.Location)
	spinSvc := service.NewSpinService(spinRepo, selector.New(nil), cfg.Location)
	focusSvc := service.NewFocusService(focusRepo, timer.SystemClock)
	reminderSvc := service.NewReminderService(checkInSvc, spinSvc, focusSvc, cfg.Location)

	recorder := metrics.NewRecorder()
	sessions := app.NewSessions(userRepo, taskSvc)
	sessions.Subscribe(recorder.OnSessionEvent)

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Deps{
		Sessions: sessions,
		CheckIns: checkInSvc,
		Spins:    spinSvc,
		Focus:    focusSvc,
		Reminder: reminderSvc,
		Metrics:  recorder,
		Location: cfg.Location,
		Clock:    timer.SystemClock,
	})
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := recorder.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("metrics: %v", err)
			}
		}()
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	reports := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("report: %v", err)
		}
	}
	if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, reports); err != nil {
		log.Fatalf("schedule daily reminder: %v", err)
	}
	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, reports); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
	}
	if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := telegramBot.NotifyExpiredFocus(jobCtx); err != nil {
			log.Printf("focus sweep: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule focus sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("[info] task tamer started tz=%s reminder=%s jobs=%d", cfg.Location, cfg.ReminderTime, scheduler.Len())
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
