package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/umutugur/rezzy-core/internal/config"
	"github.com/umutugur/rezzy-core/internal/devserver"
	"github.com/umutugur/rezzy-core/internal/logger"
	"github.com/umutugur/rezzy-core/internal/models"
	"github.com/umutugur/rezzy-core/internal/polling"
	"github.com/umutugur/rezzy-core/internal/pricing"
	"github.com/umutugur/rezzy-core/internal/reservation"
	"github.com/umutugur/rezzy-core/internal/store"
)

// reservation-watch polls one reservation and logs status transitions until
// interrupted. With -dev it runs against an in-process fake backend seeded
// with a confirmed reservation, which is handy for demoing the poller.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	var (
		reservationID = flag.String("id", "", "reservation id to watch")
		interval      = flag.Duration("interval", 0, "poll interval (overrides REZZY_POLL_INTERVAL_MS)")
		dev           = flag.Bool("dev", false, "run against an in-process fake backend")
	)
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	cfg := config.Load()
	if *interval > 0 {
		cfg.Poll.Interval = *interval
	}

	if *dev {
		id, baseURL, shutdown := startDevBackend(log)
		defer shutdown()
		cfg.API.BaseURL = baseURL
		if *reservationID == "" {
			*reservationID = id
		}
	}
	if *reservationID == "" {
		log.Error("MAIN", "no reservation id given (use -id or -dev)")
		os.Exit(1)
	}

	client := reservation.NewClient(cfg.API.BaseURL, cfg.API.Token, &http.Client{Timeout: cfg.API.Timeout}, log)

	opts := polling.Options{
		OnChange: func(old, new models.Status) {
			log.Info("MAIN", fmt.Sprintf("reservation moved %s -> %s", old, new))
		},
	}
	if cfg.Store.Enabled {
		snapshots, err := store.Open(cfg.Store.Path)
		if err != nil {
			log.Error("MAIN", fmt.Sprintf("cannot open snapshot store: %v", err))
			os.Exit(1)
		}
		defer snapshots.Close()
		if err := snapshots.Init(context.Background()); err != nil {
			log.Error("MAIN", fmt.Sprintf("cannot init snapshot store: %v", err))
			os.Exit(1)
		}
		opts.Store = snapshots
	}

	poller := polling.New(client, log, opts)
	if err := poller.Start(*reservationID, cfg.Poll.Interval); err != nil {
		log.Error("MAIN", fmt.Sprintf("cannot start poller: %v", err))
		os.Exit(1)
	}
	log.LogPoll(*reservationID, fmt.Sprintf("watching every %s (Ctrl+C to stop)", cfg.Poll.Interval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	poller.Stop()
	log.Info("MAIN", "stopped")
}

func startDevBackend(log *logger.Logger) (reservationID, baseURL string, shutdown func()) {
	menus := pricing.PriceList{
		"fix-a": {ID: "fix-a", Name: "Fixed Menu A", Price: 250},
		"fix-b": {ID: "fix-b", Name: "Fixed Menu B", Price: 400},
	}
	backend := devserver.New(menus, devserver.Options{})

	seeded := models.Reservation{
		ID:           "dev-reservation",
		RestaurantID: "R1",
		UserID:       "dev-user",
		DateTimeUTC:  time.Now().UTC().Add(30 * time.Minute),
		PartySize:    2,
		Selections: []models.Selection{
			{Person: 1, MenuID: "fix-a"},
			{Person: 2, MenuID: "fix-a"},
		},
		TotalPrice:    500,
		DepositAmount: 150,
		Status:        models.StatusConfirmed,
	}
	backend.Seed(seeded)

	srv := &http.Server{Addr: "127.0.0.1:8091", Handler: backend.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("MAIN", fmt.Sprintf("dev backend stopped: %v", err))
		}
	}()
	log.Info("MAIN", "dev backend listening on http://127.0.0.1:8091")

	return seeded.ID, "http://127.0.0.1:8091", func() { srv.Close() }
}
