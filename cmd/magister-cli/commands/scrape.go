package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"magister-backend/lib/portalstore"
	"magister-backend/lib/scrapers/magister"
	"magister-backend/lib/serviceutil"
	"magister-backend/lib/timezone"

	"github.com/spf13/cobra"
)

// exit code when the portal demands interactive action, so schedulers
// can alert the operator instead of blindly retrying
const exitAuthRequired = 2

var scrapeFlags configFlags
var scrapeDb *string
var scrapeJson *bool

func init() {
	scrapeFlags = registerConfigFlags(scrapeCmd.Flags())
	scrapeDb = scrapeCmd.Flags().String("db", "", "Record the run in this sqlite database.")
	scrapeJson = scrapeCmd.Flags().Bool("json", true, "Write the scraped document to stdout as json.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/runs.db>]",
	Short: "Logs in (reusing a cached token when possible) and scrapes all portal data.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := resolveConfig(scrapeFlags)
		client := createClient(cfg)

		t1 := time.Now()
		var doc *magister.Document
		err := authenticate(cmd.Context(), client, cfg)
		if err == nil {
			doc, err = magister.Collect(cmd.Context(), client)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		if *scrapeDb != "" {
			recordRun(cmd.Context(), *scrapeDb, doc, err)
		}
		if err != nil {
			if magister.IsAuthenticationRequired(err) {
				slog.Error("authentication required, visit the portal website", "err", err)
				os.Exit(exitAuthRequired)
			}
			serviceutil.Fatal("failed to scrape magister", err)
		}

		if *scrapeJson {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(doc)
			if err != nil {
				serviceutil.Fatal("failed to encode document", err)
			}
		}
	},
}

// recordRun writes the outcome to the run database, failures included,
// so consumers can tell stale data from fresh data.
func recordRun(ctx context.Context, path string, doc *magister.Document, scrapeErr error) {
	store, err := portalstore.Open(path)
	if err != nil {
		serviceutil.Fatal("failed to open run db", err)
	}
	defer store.Close()

	run := portalstore.Run{
		Time:    timezone.Now(),
		Success: scrapeErr == nil,
	}
	if scrapeErr != nil {
		run.Error = scrapeErr.Error()
		run.NeedsReauth = magister.IsAuthenticationRequired(scrapeErr)
	} else {
		run.Document, err = json.Marshal(doc)
		if err != nil {
			serviceutil.Fatal("failed to encode document", err)
		}
	}
	err = store.Push(ctx, run)
	if err != nil {
		serviceutil.Fatal("failed to record run", err)
	}
}
