package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/notification"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/infra/config"
	idb "recurring_payments/internal/infra/database"
	"recurring_payments/internal/infra/httpapi"
	"recurring_payments/internal/infra/logger"
	"recurring_payments/internal/infra/memstore"
	"recurring_payments/internal/infra/scheduler"
	"recurring_payments/internal/infra/telegram"
)

const shutdownTimeout = 15 * time.Second

type repositories struct {
	payments    payment.Repository
	occurrences payment.OccurrenceRepository
	reminders   payment.ReminderRepository
	suggestions payment.SuggestionRepository
	entries     expense.EntryRepository
	categories  expense.CategoryRepository
	recipients  notification.RecipientRepository
}

func main() {
	migrateCmd := flag.String("migrate", "", "Migration command (up/down/version)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.StorageDriver,
		"timezone":    cfg.Timezone,
	}).Info("Configuration loaded")

	if *migrateCmd != "" {
		runMigration(cfg, *migrateCmd, mainLogger)
		return
	}

	repos, db := openStorage(cfg, mainLogger)
	if db != nil {
		defer db.Close()
	}

	var (
		notifier notification.Notifier = telegram.NewLogNotifier(logger.Component("notifications"))
		bot      *telebot.Bot
	)
	if cfg.TelegramToken != "" {
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				logCtx := logger.Component("telebot").WithError(err)
				if c != nil && c.Chat() != nil {
					logCtx = logCtx.WithField("chat_id", c.Chat().ID)
				}
				logCtx.Error("Telegram handler failed")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifier = telegram.NewNotifier(telegram.NewTelebotAdapter(bot), repos.recipients, logrus.NewEntry(log))
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN not set; notifications will only be logged")
	}

	dispatcher := app.NewNotificationDispatcher(notifier, logrus.NewEntry(log), app.DispatcherOptions{
		QueueSize:   cfg.NotificationQueueSize,
		MaxAttempts: cfg.NotificationMaxAttempts,
	})
	dispatcher.Start()

	clock := app.Clock(app.SystemClock).In(cfg.Location())
	baseLogger := logrus.NewEntry(log)
	paymentService := app.NewPaymentServiceImpl(repos.payments, repos.categories, baseLogger)
	ledgerService := app.NewLedgerServiceImpl(repos.payments, repos.occurrences, repos.entries, clock, baseLogger)
	reminderService := app.NewReminderServiceImpl(repos.payments, repos.reminders, repos.entries, dispatcher, baseLogger)
	autoPostService := app.NewAutoPostServiceImpl(repos.payments, repos.entries, ledgerService, dispatcher, baseLogger)
	suggestionService := app.NewSuggestionServiceImpl(repos.payments, repos.suggestions, repos.entries, ledgerService, clock, baseLogger)

	jobs := scheduler.New(
		scheduler.Jobs{
			Reminders:          reminderService,
			AutoPost:           autoPostService,
			Suggestions:        suggestionService,
			SuggestionDaysBack: cfg.SuggestionDaysBack,
		},
		baseLogger,
		scheduler.Specs{
			Reminders:   cfg.CronSpecReminders,
			AutoPost:    cfg.CronSpecAutoPost,
			Suggestions: cfg.CronSpecSuggestions,
		},
		scheduler.Options{Location: cfg.Location(), JobTimeout: cfg.JobTimeout, Clock: clock},
	)
	if err := jobs.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bot != nil {
		handler := telegram.NewCommandHandler(repos.recipients, paymentService, jobs.Today, baseLogger)
		telegram.RegisterBotCommands(ctx, bot, handler)
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Payments:           paymentService,
		Ledger:             ledgerService,
		Reminders:          reminderService,
		Suggestions:        suggestionService,
		Recipients:         repos.recipients,
		Jobs:               jobs,
		Today:              jobs.Today,
		SuggestionDaysBack: cfg.SuggestionDaysBack,
	}, baseLogger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		mainLogger.WithField("address", cfg.HTTPAddress).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	if bot != nil {
		bot.Stop()
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("Scheduler shutdown failed")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("Notification dispatcher shutdown failed")
	}
	mainLogger.Info("Application shut down gracefully")
}

func openStorage(cfg *config.AppConfig, log *logrus.Entry) (repositories, *sql.DB) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		store := memstore.New()
		return repositories{
			payments:    store.Payments(),
			occurrences: store.Occurrences(),
			reminders:   store.Reminders(),
			suggestions: store.Suggestions(),
			entries:     store.Entries(),
			categories:  store.Categories(),
			recipients:  store.Recipients(),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	log.Info("Database connection established")

	return repositories{
		payments:    idb.NewPostgresPaymentRepository(db),
		occurrences: idb.NewPostgresOccurrenceRepository(db),
		reminders:   idb.NewPostgresReminderRepository(db),
		suggestions: idb.NewPostgresSuggestionRepository(db),
		entries:     idb.NewPostgresEntryRepository(db),
		categories:  idb.NewPostgresCategoryRepository(db),
		recipients:  idb.NewPostgresRecipientRepository(db),
	}, db
}

func runMigration(cfg *config.AppConfig, command string, log *logrus.Entry) {
	if cfg.StorageDriver != config.StorageDriverPostgres {
		log.Fatal("Migrations require STORAGE_DRIVER=postgres")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()

	status, err := idb.Migrate(db, cfg.MigrationsDir, command)
	if err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	log.WithField("command", command).Info(status)
}
