package commands

import (
	"log/slog"
	"os"

	"magister-backend/lib/scrapers/magister"
	"magister-backend/lib/scrapers/magister/tokencache"
	"magister-backend/lib/serviceutil"
	"magister-backend/lib/timezone"

	"github.com/spf13/cobra"
)

var loginFlags configFlags

func init() {
	loginFlags = registerConfigFlags(loginCmd.Flags())
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Performs a fresh portal login and writes the token cache, without scraping.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := resolveConfig(loginFlags)
		client := createClient(cfg)

		err := client.Login(cmd.Context(), cfg.Username, cfg.Password)
		if err != nil {
			if magister.IsAuthenticationRequired(err) {
				slog.Error("authentication required, visit the portal website", "err", err)
				os.Exit(exitAuthRequired)
			}
			serviceutil.Fatal("failed to login to magister", err)
		}
		err = tokencache.Store(cfg.Cache, client.AccessToken(), timezone.Now())
		if err != nil {
			serviceutil.Fatal("failed to write token cache", err)
		}
		slog.Info("login ok", "cache", cfg.Cache)
	},
}
