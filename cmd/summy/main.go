package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/summy/ai/core/llm"
	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/ai/metrics"
	"github.com/hrygo/summy/ai/observability/logging"
	"github.com/hrygo/summy/ai/summary"
	"github.com/hrygo/summy/internal/profile"
	"github.com/hrygo/summy/internal/secret"
	"github.com/hrygo/summy/internal/version"
	"github.com/hrygo/summy/plugin/chat_apps/channels/telegram"
	"github.com/hrygo/summy/server"
	"github.com/hrygo/summy/server/router/bot"
	"github.com/hrygo/summy/store"
	"github.com/hrygo/summy/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "summy",
		Short: `A Telegram bot that summarizes web articles and PDF files with a large language model.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Under systemd the environment comes from the unit file.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile := &profile.Profile{
				Mode:          viper.GetString("mode"),
				Addr:          viper.GetString("addr"),
				Port:          viper.GetInt("port"),
				Data:          viper.GetString("data"),
				Driver:        viper.GetString("driver"),
				DSN:           viper.GetString("dsn"),
				LLMProvider:   viper.GetString("llm-provider"),
				LLMModel:      viper.GetString("llm-model"),
				Renderer:      viper.GetString("renderer"),
				SecretBackend: viper.GetString("secret-backend"),
				WebhookURL:    viper.GetString("webhook-url"),
				WebhookSecret: viper.GetString("webhook-secret"),
				LogFile:       viper.GetString("log-file"),
				Version:       version.GetCurrentVersion(viper.GetString("mode")),
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), instanceProfile)
		},
	}

	secretCmd = &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials stored in the OS keyring",
	}

	secretSetCmd = &cobra.Command{
		Use:   "set <id> <value>",
		Short: fmt.Sprintf("Store a secret (%s, %s, %s)", secret.TelegramTokenID, secret.OpenAITokenID, secret.TelegramAllowedUsersID),
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := secret.NewKeyringStore(secret.KeyringService).Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Stored %s in the %q keyring.\n", args[0], secret.KeyringService)
			return nil
		},
	}

	secretDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a secret from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return secret.NewKeyringStore(secret.KeyringService).Delete(args[0])
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.StringFull())
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of the health, metrics and webhook server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite, postgres)")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("llm-provider", "", "LLM provider (openai, deepseek, siliconflow, openrouter, ollama)")
	flags.String("llm-model", "", "LLM model, defaults per provider")
	flags.String("renderer", "", `page renderer, "chrome" or "http"`)
	flags.String("secret-backend", "", `where to read missing secrets, "env" or "keyring"`)
	flags.String("webhook-url", "", "public URL for Telegram webhooks ending in "+server.WebhookPath+"; empty uses long polling")
	flags.String("webhook-secret", "", "secret_token Telegram must send with webhook updates; empty generates one")
	flags.String("log-file", "", "also write logs to this file")

	for _, name := range []string{
		"mode", "addr", "port", "data", "driver", "dsn",
		"llm-provider", "llm-model", "renderer", "secret-backend", "webhook-url", "webhook-secret", "log-file",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("summy")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd, versionCmd)
}

func run(parent context.Context, p *profile.Profile) error {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger, logCloser, err := logging.New(logging.Options{Mode: p.Mode, Level: level, File: p.LogFile})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, terminationSignals...)
	defer stop()
	// cancel is also triggered by /shut.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	secrets, err := secret.New(p.SecretBackend)
	if err != nil {
		return err
	}
	if err := secret.Resolve(ctx, secrets, p); err != nil {
		return fmt.Errorf("failed to resolve secrets from %s: %w", p.SecretBackend, err)
	}

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		printDatabaseError(err, p)
		return err
	}
	storeInstance := store.New(dbDriver, p)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", "error", err)
		return err
	}
	if _, err := storeInstance.ReadOrInitializeBotConfig(ctx); err != nil {
		slog.Warn("failed to initialize bot config", "error", err)
	}

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	llmService, err := llm.NewService(&llm.Config{
		Provider: p.LLMProvider,
		Model:    p.LLMModel,
		APIKey:   p.LLMAPIKey,
		BaseURL:  p.LLMBaseURL,
		Timeout:  p.LLMTimeout,
		Recorder: exporter,
	})
	if err != nil {
		return err
	}
	llmService.Warmup(ctx)

	settle := time.Duration(p.SettleSeconds) * time.Second
	extractor := extract.NewExtractor(newRenderer(p, settle), settle+time.Duration(p.PageLoadTimeout)*time.Second)

	channel, err := telegram.NewTelegramChannel(&telegram.TelegramConfig{
		BotToken: p.TelegramToken,
		Recorder: exporter,
	})
	if err != nil {
		return err
	}
	defer channel.Close()

	b := bot.New(bot.Config{
		Profile:    p,
		Store:      storeInstance,
		Extractor:  extractor,
		Summarizer: summary.NewSummarizer(llmService),
		Channel:    channel,
		Recorder:   exporter,
		ParseMode:  telegram.DefaultParseMode,
		Shutdown:   cancel,
	})

	webhook := telegram.NewWebhookHandler(channel, p.WebhookSecret)
	opts := server.Options{
		Metrics: exporter.Handler(),
		Healthy: func(ctx context.Context) error { return dbDriver.GetDB().PingContext(ctx) },
	}
	if p.WebhookURL != "" {
		opts.Webhook = webhook
		opts.Handler = b.Handle
	}

	s := server.NewServer(ctx, p, opts)
	if err := s.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.WebhookURL != "" {
		if err := webhook.SetWebhook(ctx, p.WebhookURL, false); err != nil {
			s.Shutdown(context.Background())
			return fmt.Errorf("failed to register webhook: %w", err)
		}
	} else {
		// getUpdates is refused while a webhook is registered.
		if err := webhook.DeleteWebhook(ctx); err != nil {
			slog.Warn("failed to delete webhook", "error", err)
		}
		g.Go(func() error {
			defer cancel()
			return channel.Listen(gctx, b.Handle)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.Background())
		return nil
	})

	printGreetings(p)
	err = g.Wait()
	slog.Info("summy stopped")
	return err
}

func newRenderer(p *profile.Profile, settle time.Duration) extract.PageRenderer {
	if p.Renderer == profile.RendererHTTP {
		return extract.NewHTTPRenderer(nil)
	}
	return extract.NewChromeRenderer(settle, os.Getenv("SUMMY_CHROME_PATH"))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Summy %s started successfully!\n", p.Version)

	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if p.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("LLM: %s (%s)\n", p.LLMProvider, p.LLMModel)
	fmt.Printf("Renderer: %s\n", p.Renderer)
	fmt.Printf("Allowed users: %d\n", len(p.AllowedUsers))
	if p.WebhookURL != "" {
		fmt.Printf("Receiving updates by webhook: %s\n", p.WebhookURL)
	} else {
		fmt.Println("Receiving updates by long polling")
	}
	if len(p.Addr) == 0 {
		fmt.Printf("Health and metrics on port %d\n", p.Port)
	} else {
		fmt.Printf("Health and metrics on %s:%d\n", p.Addr, p.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError provides user-friendly error messages for database connection issues
func printDatabaseError(err error, p *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDatabase Connection Failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL is not reachable.")
		fmt.Fprintln(os.Stderr, "   Or use SQLite: --driver=sqlite --data=./data")
	case strings.Contains(errMsg, "sslmode") || strings.Contains(errMsg, "SSL is not enabled"):
		fmt.Fprintln(os.Stderr, "\nAdd ?sslmode=disable to your DSN.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "\nCheck the credentials in your DSN or .env file.")
	case strings.Contains(errMsg, "unable to open database file") || strings.Contains(errMsg, "permission denied"):
		fmt.Fprintf(os.Stderr, "\nCheck that %s is writable.\n", p.Data)
	default:
		fmt.Fprintln(os.Stderr, "\nError:", errMsg)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
