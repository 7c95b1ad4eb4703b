package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"terradjunto/internal/api"
	"terradjunto/internal/auth"
	"terradjunto/internal/config"
	"terradjunto/internal/logger"
	"terradjunto/internal/records"
	"terradjunto/internal/storage"
	"terradjunto/internal/store"
	"terradjunto/internal/tabular"

	"github.com/urfave/cli/v3"
)

func main() {
	log := logger.Setup()
	cfg := config.Load()

	root := &cli.Command{
		Name:  "terradjunto",
		Usage: "Terra Djunto civic portal server and admin tools",
		Commands: []*cli.Command{
			serveCommand(cfg),
			createAdminCommand(cfg),
			exportCommand(cfg),
			ingestCommand(cfg),
			reportCommand(cfg),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, cfg)
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// openArchive returns nil when object storage is not configured, so uploads
// stay metadata only.
func openArchive() storage.Archiver {
	a, err := storage.New()
	if errors.Is(err, storage.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		logger.L().Warn("object storage unavailable", "err", err)
		return nil
	}
	return a
}

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: cfg.Port, Usage: "HTTP listen port"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.Port = c.String("port")
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	log := logger.L()

	kv, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer kv.Close()

	a, err := api.New(kv, api.Config{
		Sessions:       auth.NewSessions(cfg.SessionSecret, cfg.SecureCookies),
		Archive:        openArchive(),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.AdminPassword != "" {
		if _, err := a.Accounts().EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	} else {
		log.Warn("ADMIN_PASSWORD not set, admin account not seeded")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("terradjunto starting", "addr", "http://localhost:"+cfg.Port, "store", kv.Description())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func createAdminCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create the admin account, or promote an existing user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Value: cfg.AdminEmail},
			&cli.StringFlag{Name: "name", Value: cfg.AdminName},
			&cli.StringFlag{Name: "password", Value: cfg.AdminPassword, Usage: "required for a new account"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			kv, err := store.New(cfg.Store)
			if err != nil {
				return err
			}
			defer kv.Close()

			u, err := auth.NewAccounts(kv).EnsureAdmin(ctx, c.String("email"), c.String("name"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("admin ready: %s (%s)\n", u.Email, u.Name)
			return nil
		},
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a collection or the status report as CSV",
		ArgsUsage: "<incidents|waste|participation|report>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file (default stdout, \"auto\" for a dated name)"},
			&cli.StringFlag{Name: "status", Usage: "only records in this status"},
			&cli.StringFlag{Name: "q", Usage: "substring filter"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			what := c.Args().First()
			if what == "" {
				return fmt.Errorf("missing collection, want one of incidents, waste, participation, report")
			}

			kv, err := store.New(cfg.Store)
			if err != nil {
				return err
			}
			defer kv.Close()

			q := records.Query{Text: c.String("q"), Status: c.String("status")}
			inc, waste, part := records.NewIncidents(kv), records.NewWaste(kv), records.NewParticipation(kv)

			var prefix, body string
			switch what {
			case "incidents":
				prefix, body = "ocorrencias", tabular.Render(records.IncidentColumns, inc.Search(ctx, q))
			case "waste":
				prefix, body = "residuos", tabular.Render(records.WasteColumns, waste.Search(ctx, q))
			case "participation":
				prefix, body = "participacao", tabular.Render(records.ParticipationColumns, part.Search(ctx, q))
			case "report":
				prefix, body = "relatorio", tabular.Render(records.ReportColumns, records.ReportRows(records.Report(ctx, inc, waste, part)))
			default:
				return fmt.Errorf("unknown collection %q", what)
			}

			out := c.String("out")
			if out == "auto" {
				out = tabular.Filename(prefix, time.Now())
			}
			return writeOut(out, body+"\n")
		},
	}
}

func writeOut(path, body string) error {
	if path == "" {
		_, err := io.WriteString(os.Stdout, body)
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}

func ingestCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Load a GeoJSON, KML, CSV, Shapefile or GeoPackage file as a map dataset",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "dataset name (default file name)"},
			&cli.StringFlag{Name: "scope", Value: "header", Usage: "header or participate"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("missing file")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			kv, err := store.New(cfg.Store)
			if err != nil {
				return err
			}
			defer kv.Close()

			d, res, err := records.NewDatasets(kv).Ingest(ctx, openArchive(), records.Upload{
				Filename: filepath.Base(path),
				Name:     c.String("name"),
				Scope:    c.String("scope"),
				Data:     data,
			})
			if err != nil {
				return err
			}
			fmt.Printf("dataset %s (%s): %d features, %d skipped, active=%t\n", d.ID, d.Type, res.Count, res.Skipped, d.Active)
			return nil
		},
	}
}

func reportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print record counts per workflow status",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			kv, err := store.New(cfg.Store)
			if err != nil {
				return err
			}
			defer kv.Close()

			sums := records.Report(ctx, records.NewIncidents(kv), records.NewWaste(kv), records.NewParticipation(kv))
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sums)
			}
			for _, row := range records.ReportRows(sums) {
				fmt.Printf("%-14s %-13s %d\n", row.Collection, row.Status, row.Count)
			}
			return nil
		},
	}
}
