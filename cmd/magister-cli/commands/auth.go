package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"magister-backend/lib/configutil"
	"magister-backend/lib/restyutil"
	"magister-backend/lib/scrapers/magister"
	"magister-backend/lib/scrapers/magister/tokencache"
	"magister-backend/lib/serviceutil"
	"magister-backend/lib/timezone"

	"github.com/spf13/pflag"
)

type Config struct {
	SchoolServer   string `json:"schoolserver"`
	AccountsServer string `json:"magisterserver"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	AuthCode       string `json:"authcode"`
	Cache          string `json:"cache"`
}

type configFlags struct {
	schoolServer   *string
	accountsServer *string
	username       *string
	password       *string
	authCode       *string
	cache          *string
}

func registerConfigFlags(fs *pflag.FlagSet) configFlags {
	return configFlags{
		schoolServer:   fs.String("schoolserver", "", "The school's magister server, e.g. school.magister.net."),
		accountsServer: fs.String("magisterserver", "", "The magister accounts server, defaults to accounts.magister.net."),
		username:       fs.String("username", "", "The portal username."),
		password:       fs.String("password", "", "The portal password."),
		authCode:       fs.String("authcode", "", "Override the auth code extracted from the account bundle."),
		cache:          fs.String("cache", "", "Path to the access token cache file."),
	}
}

// resolveConfig layers command line flags over config.json5. The config
// file is optional as long as the flags cover the required fields.
func resolveConfig(f configFlags) Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if *f.schoolServer != "" {
		cfg.SchoolServer = *f.schoolServer
	}
	if *f.accountsServer != "" {
		cfg.AccountsServer = *f.accountsServer
	}
	if *f.username != "" {
		cfg.Username = *f.username
	}
	if *f.password != "" {
		cfg.Password = *f.password
	}
	if *f.authCode != "" {
		cfg.AuthCode = *f.authCode
	}
	if *f.cache != "" {
		cfg.Cache = *f.cache
	}
	if cfg.SchoolServer == "" || cfg.Username == "" || cfg.Password == "" {
		serviceutil.Fatal("incomplete credentials", errors.New("schoolserver, username and password are required"))
	}
	if cfg.Cache == "" {
		cfg.Cache = tokencache.DefaultPath(cfg.SchoolServer, cfg.Username)
	}
	return cfg
}

func createClient(cfg Config) *magister.Client {
	var output restyutil.InstrumentOutput
	if *debug {
		output = restyutil.NewFilesystemOutput(".dev/resty/magister")
	}
	client, err := magister.NewClient(magister.ClientOptions{
		SchoolServer:     cfg.SchoolServer,
		AccountsServer:   cfg.AccountsServer,
		AuthCode:         cfg.AuthCode,
		InstrumentOutput: output,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize magister client", err)
	}
	return client
}

// authenticate reuses a cached access token when it has comfortably
// long enough left to live, otherwise it performs a fresh login and
// refreshes the cache.
func authenticate(ctx context.Context, client *magister.Client, cfg Config) error {
	rec, ok := tokencache.Load(cfg.Cache)
	if ok && tokencache.Accept(rec, timezone.Now()) {
		slog.Info("using cached access token", "expires", rec.Expires)
		client.SetAccessToken(rec.AccessToken)
		return nil
	}

	slog.Info("logging in", "username", cfg.Username, "school", cfg.SchoolServer)
	err := client.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return err
	}
	err = tokencache.Store(cfg.Cache, client.AccessToken(), timezone.Now())
	if err != nil {
		slog.Warn("failed to write token cache", "path", cfg.Cache, "err", err)
	}
	return nil
}
