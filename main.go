package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/current.report/internal/api"
	"github.com/banshee-data/current.report/internal/db"
	"github.com/banshee-data/current.report/internal/monitoring"
	"github.com/banshee-data/current.report/internal/units"
	"github.com/banshee-data/current.report/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbPath       = flag.String("db", "current_report.db", "Path to the SQLite run database")
	displayUnits = flag.String("units", units.MPS, "Default speed units for summaries ("+units.GetValidUnitsString()+")")
	debug        = flag.Bool("debug", false, "Log per-ensemble diagnostics")
	enableAdmin  = flag.Bool("admin", true, "Mount /debug/ routes (tailsql browser, database backup)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n       %s migrate <action> [args]\n\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("current-report", version.String())
		return
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate failed: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("listen address is required")
	}
	if !units.IsValid(*displayUnits) {
		log.Fatalf("invalid units %q, must be one of %s", *displayUnits, units.GetValidUnitsString())
	}
	monitoring.SetDebug(*debug)

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(store, *displayUnits).ServeMux()
		if *enableAdmin {
			if err := store.AttachAdminRoutes(mux); err != nil {
				log.Fatalf("failed to attach admin routes: %v", err)
			}
		}
		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("serving runs from %s on %s", *dbPath, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
