package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wordsmith/internal/analytics"
	"wordsmith/internal/config"
	"wordsmith/internal/db"
	"wordsmith/internal/external"
	"wordsmith/internal/ledger"
	"wordsmith/internal/textproc"
	"wordsmith/internal/types"
)

// Setting keys. Each is also a persistent flag and a TEXTCTL_ variable with
// dashes replaced by underscores.
const (
	keyConfig      = "config"
	keyLedgerPath  = "ledger-path"
	keyLexicon     = "lexicon"
	keyPlan        = "plan"
	keyUser        = "user"
	keyDatabaseURL = "database-url"
	keyOutput      = "output"
	keyLogLevel    = "log-level"
)

type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "textctl",
		Short:         "Run Wordsmith text capabilities and manage usage and API keys",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadSettings()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "Config file (.yaml, .toml or .json)")
	flags.String(keyLedgerPath, "wordsmith.db", "SQLite usage ledger")
	flags.String(keyLexicon, "", "Lexicon override file (.yaml or .toml)")
	flags.String(keyPlan, string(types.PlanEnterprise), "Plan applied to local runs")
	flags.String(keyUser, "local", "User the local runs are metered to")
	flags.String(keyDatabaseURL, "", "Postgres URL for API key management")
	flags.StringP(keyOutput, "o", "text", "Output format (text, json)")
	flags.String(keyLogLevel, "warn", "Log level (debug, info, warn, error)")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("TEXTCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		newKeywordsCmd(a),
		newSentimentCmd(a),
		newSummarizeCmd(a),
		newUsageCmd(a),
		newLexiconCmd(a),
		newAPIKeyCmd(a),
	)
	return rootCmd
}

// loadSettings reads the optional config file. Flags and environment
// variables keep precedence over it.
func (a *app) loadSettings() error {
	if path := a.v.GetString(keyConfig); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	switch out := a.v.GetString(keyOutput); out {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q", out)
	}
	return nil
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	var lvl slog.Level
	switch a.v.GetString(keyLogLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}

func (a *app) actor() types.Actor {
	return types.Actor{ID: a.v.GetString(keyUser), Type: types.ActorTypeUser, Source: "cli"}
}

func (a *app) lexicon() (*textproc.Lexicon, error) {
	path := a.v.GetString(keyLexicon)
	if path == "" {
		return textproc.DefaultLexicon(), nil
	}
	return textproc.LoadLexiconFile(path)
}

// openService builds the capability engine over the SQLite ledger and a
// static subscription. The returned func closes the ledger.
func (a *app) openService(cmd *cobra.Command) (*analytics.Service, func() error, error) {
	logger := a.logger(cmd)

	lex, err := a.lexicon()
	if err != nil {
		return nil, nil, err
	}
	store, err := db.OpenSQLiteUsageStore(a.v.GetString(keyLedgerPath), logger)
	if err != nil {
		return nil, nil, err
	}

	svc := analytics.NewService(analytics.Config{
		Subscriptions: external.NewStaticSubscriptionReader(a.v.GetString(keyPlan)),
		Ledger:        ledger.New(store, ledger.WithLogger(logger)),
		Lexicon:       lex,
		Logger:        logger,
	})
	return svc, store.Close, nil
}

// openPostgres connects to the database named by --database-url.
func (a *app) openPostgres(ctx context.Context) (*db.APIKeyRepo, func(), error) {
	url := a.v.GetString(keyDatabaseURL)
	if url == "" {
		return nil, nil, errors.New("database-url is required (flag, TEXTCTL_DATABASE_URL or config file)")
	}
	pool, err := db.NewPool(ctx, config.DatabaseConfig{
		URL:      config.SecretString(url),
		MaxConns: 1,
	})
	if err != nil {
		return nil, nil, err
	}
	return db.NewAPIKeyRepo(pool), pool.Close, nil
}

func (a *app) jsonOutput() bool {
	return a.v.GetString(keyOutput) == "json"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput returns the text of the file named by args, or stdin when there
// is no argument or it is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
