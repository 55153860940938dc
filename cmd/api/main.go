// cmd/api/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"lendex/internal/catalog"
	"lendex/internal/config"
	"lendex/internal/directory"
	"lendex/internal/httpx"
	"lendex/internal/ledger"
	"lendex/internal/notify"
	"lendex/internal/observability"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	shutdownTracing, err := observability.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("setup tracing: %v", err)
	}

	notifier := notify.NewService(db)
	engine := ledger.NewService(ledger.NewPostgresStore(db),
		ledger.WithPolicy(ledger.Policy{LoanPeriod: cfg.LoanPeriod, ReissueLimit: cfg.ReissueLimit}),
		ledger.WithNotifier(notifier),
	)

	router := httpx.NewRouter()
	catalog.NewHandler(catalog.NewService(db)).Register(router)
	ledger.NewHandler(engine).Register(router)
	directory.NewHandler(directory.NewService(db)).Register(router)
	notify.NewHandler(notifier).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("lendex listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	_ = shutdownTracing(shutdownCtx)
}
