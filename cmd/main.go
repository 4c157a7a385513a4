package main

import (
	"apodgallery/pkg/config"
	"apodgallery/pkg/feed"
	"apodgallery/pkg/handler"
	repo "apodgallery/pkg/repository"
	srvc "apodgallery/pkg/service"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	// .env не обязателен, в контейнере всё приходит через окружение
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("error while reading .env: %s", err.Error())
	}

	cnf := config.Load()

	if lvl, err := logrus.ParseLevel(cnf.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db *sqlx.DB
	if cnf.Database.Enabled() {
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)

		var err error
		db, err = repo.NewPostgresDB(dbCtx, cnf.Database)
		if err != nil {
			logrus.Fatalf("failed to initialize db: %s", err.Error())
		}

		if err := repo.NewPostgres(db).CreateSchema(dbCtx); err != nil {
			logrus.Fatalf("failed to create schema: %s", err.Error())
		}

		dbCancel()
	} else {
		logrus.Info("no database configured, fetch journal is kept in memory")
	}

	log := logrus.WithField("app", "apodgallery")

	services := srvc.NewService(
		ctx,
		repo.NewRepository(db),
		feed.NewClient(cnf.Feed.URL, feed.Format(cnf.Feed.Format), nil, log),
		srvc.Options{AllowStacking: cnf.Modal.AllowStacking},
		log,
	)

	handlers := handler.NewHandler(services)

	srv := new(server)
	go func() {
		logrus.Infof("apodgallery listening on :%s, feed %s", cnf.Port, cnf.Feed.URL)
		if err := srv.Run(cnf.Port, handlers.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Printf("apodgallery Shutting Down")

	// отменяем загрузки, которые ещё висят
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logrus.Errorf("error occured on db connection close: %s", err.Error())
		}
	}
}

type server struct {
	httpSrv *http.Server
}

func (s *server) Run(port string, h http.Handler) error {
	s.httpSrv = &http.Server{
		Addr:           ":" + port,
		Handler:        h,
		MaxHeaderBytes: 1 << 20,
		ReadTimeout:    10 * time.Second,
		IdleTimeout:    60 * time.Second,
	}

	return s.httpSrv.ListenAndServe()
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
