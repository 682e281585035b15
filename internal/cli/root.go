// Package cli is the terminal presentation of the Access Tool client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"access-tool/internal/common/cache"
	"access-tool/internal/common/config"
	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/logger"
	authservice "access-tool/internal/features/auth/service"
	chatservice "access-tool/internal/features/chat/service"
	chatstate "access-tool/internal/features/chat/state"
	"access-tool/internal/features/condition/registry"
	conditionservice "access-tool/internal/features/condition/service"
	walletservice "access-tool/internal/features/wallet/service"
	"access-tool/internal/platform/accessapi"
	"access-tool/internal/platform/host"
	"access-tool/internal/platform/localstore"
	"access-tool/internal/platform/redis"
)

const serviceName = "accesstool"

type Options struct {
	Config *config.Config
	// Logger replaces the component logger built from the config.
	Logger *zap.Logger
	// Store replaces the SQLite storage at Storage.LocalPath.
	Store localstore.KV
	// Bridge replaces the terminal host.
	Bridge host.Bridge
}

// App holds the services of one command invocation. They are built in open and
// released in close.
type App struct {
	cfg      *config.Config
	opts     Options
	registry *registry.Registry

	out    io.Writer
	in     io.Reader
	log    zerolog.Logger
	zlog   *zap.Logger
	store  localstore.KV
	bridge host.Bridge
	toasts *apperrors.ToastFilter

	api        *accessapi.Client
	auth       *authservice.Service
	chats      *chatservice.Service
	conditions *conditionservice.Service
	wallets    *walletservice.Service

	closers []func() error
}

func NewRootCmd(opts Options) *cobra.Command {
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}
	app := &App{cfg: opts.Config, opts: opts, registry: registry.New()}

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Access Tool client: gated chats, their conditions and your wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in with the init data of the Mini App launch
  accesstool login --init-data "$TELEGRAM_INIT_DATA"

  # Chats you manage and their conditions
  accesstool chats list
  accesstool chats show my-chat

  # Add a jetton condition
  accesstool rules new my-chat jetton --set address=EQ... --set expected=100

  # See what you need to join, then press the button
  accesstool join my-chat --press
`),
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.cfg.API.BaseURL, "api", app.cfg.API.BaseURL, "Backend base URL")
	flags.StringVar(&app.cfg.Auth.InitData, "init-data", app.cfg.Auth.InitData, "Raw Telegram init data")
	flags.BoolVar(&app.cfg.Debug, "debug", app.cfg.Debug, "Verbose logging to stderr")
	flags.StringVar(&app.cfg.UI.MarkdownStyle, "markdown-style", app.cfg.UI.MarkdownStyle, "Glamour style for descriptions (dark|light|notty), empty follows the terminal")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newMeCmd(app))
	cmd.AddCommand(newChatsCmd(app))
	cmd.AddCommand(newRulesCmd(app))
	cmd.AddCommand(newJoinCmd(app))
	cmd.AddCommand(newWalletCmd(app))

	return cmd
}

// run wraps a command body with opening and closing the app.
func (a *App) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

// authed is run for commands that need a session. A missing or expired token is
// renewed from the init data when there is some.
func (a *App) authed(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return a.run(func(cmd *cobra.Command, args []string) error {
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd, args)
	})
}

func (a *App) open(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}

	a.out = cmd.OutOrStdout()
	a.in = cmd.InOrStdin()
	a.log = logger.New(cmd.ErrOrStderr(), serviceName, a.cfg.Debug)
	if a.cfg.UI.DisableColors {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	a.zlog = a.opts.Logger
	if a.zlog == nil {
		zlog, err := newComponentLogger(a.cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.zlog = zlog
		a.closers = append(a.closers, func() error {
			_ = zlog.Sync()
			return nil
		})
	}

	a.store = a.opts.Store
	if a.store == nil {
		path := a.cfg.Storage.LocalPath
		if path == "" {
			p, err := localstore.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		db, err := localstore.OpenSQLite(ctx, path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.store = db
		a.log.Debug().Str("path", path).Msg("Local storage opened")
	}

	queries := cache.NewQueryCache(a.sessionBackend(ctx), cache.DefaultKey, a.zlog)
	if err := queries.Hydrate(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Session cache not restored")
	}

	apiOpts := accessapi.OptionsFromConfig(a.cfg)
	apiOpts.Cache = queries
	apiOpts.Logger = a.zlog
	a.api = accessapi.New(apiOpts)

	a.auth = authservice.NewService(a.api, a.store, authservice.Options{
		DevMode:        a.cfg.Auth.DevMode,
		DevAccessToken: a.cfg.Auth.DevAccessToken,
	}, a.zlog)
	a.api.SetTokenSource(a.auth)
	a.api.SetUnauthorizedHook(a.auth.HandleUnauthorized)

	a.chats = chatservice.NewService(a.api, chatstate.NewStore(), a.zlog)
	a.conditions = conditionservice.NewService(a.api, a.registry, a.zlog)
	a.wallets = walletservice.NewService(a.api, a.cfg.Wallet.TaskPollInterval, a.zlog)

	a.bridge = a.opts.Bridge
	if a.bridge == nil {
		a.bridge = host.NewTerminal(a.out, strings.TrimSpace(a.cfg.Auth.InitData))
	}
	a.toasts = apperrors.NewToastFilter(a.cfg.UI.ToastFilters)
	return nil
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("Failed to release resource")
		}
	}
	a.closers = nil
}

// sessionBackend returns the storage of the query cache. An unreachable redis falls back
// to memory.
func (a *App) sessionBackend(ctx context.Context) cache.Backend {
	s := a.cfg.Storage
	if s.SessionBackend == "redis" {
		client, err := redis.OpenFromConfig(ctx, a.cfg)
		if err == nil {
			a.closers = append(a.closers, client.Close)
			return cache.NewRedisBackend(client.Client, s.SessionTTL, s.SessionQuotaBytes)
		}
		a.log.Warn().Err(err).Msg("Redis session cache unavailable, using memory")
	}
	return cache.NewMemoryBackend(s.SessionQuotaBytes, s.SessionTTL)
}

func (a *App) ensureSession(ctx context.Context) error {
	_, err := a.auth.Session(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, authservice.ErrNotAuthenticated) && !errors.Is(err, authservice.ErrTokenExpired) {
		return err
	}
	if a.bridge.InitData() == "" && !a.cfg.Auth.DevMode {
		return fmt.Errorf("%w: run `%s login` first", err, serviceName)
	}
	session, err := a.auth.Authenticate(ctx, a.bridge.InitData())
	if err != nil {
		return err
	}
	a.log.Debug().Int64("user_id", session.UserID).Msg("Session renewed from init data")
	return nil
}

func (a *App) markdownStyle() string {
	if a.cfg.UI.MarkdownStyle != "" {
		return a.cfg.UI.MarkdownStyle
	}
	return host.MarkdownStyle(a.bridge)
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func newComponentLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}
