package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	chatmodels "access-tool/internal/features/chat/models"
	chatstate "access-tool/internal/features/chat/state"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/eligibility/models"
	"access-tool/internal/features/eligibility/repository"
	"access-tool/internal/platform/host"
)

var ErrNoJoinURL = errors.New("chat has no join link")

// ChatRefresher re-reads the chat aggregate into the store.
type ChatRefresher interface {
	Refresh(ctx context.Context, slug string) (chatmodels.Aggregate, error)
}

// WalletOpener starts the wallet connect flow.
type WalletOpener interface {
	Open(ctx context.Context) error
}

type ButtonOptions struct {
	Slug   string
	Store  *chatstate.Store
	Chat   ChatRefresher
	Wallet WalletOpener
	Ledger *repository.EmojiLedger
	Bridge host.Bridge
	Toasts *apperrors.ToastFilter
	Logger *zap.Logger
}

// ButtonController keeps the host main button in sync with the chat aggregate and runs
// the action behind it.
type ButtonController struct {
	opts ButtonOptions

	mu       sync.Mutex
	checking bool
	current  models.Action
}

func NewButtonController(opts ButtonOptions) *ButtonController {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Toasts == nil {
		opts.Toasts = apperrors.NewToastFilter(nil)
	}
	return &ButtonController{opts: opts}
}

// Watch re-renders the button on every store change until the returned stop is called.
func (c *ButtonController) Watch(ctx context.Context) (stop func()) {
	unsubscribe := c.opts.Store.Subscribe(func(chatstate.Snapshot) {
		if _, err := c.Render(ctx); err != nil {
			c.opts.Logger.Warn("Failed to render main button", zap.Error(err))
		}
	})
	return func() {
		unsubscribe()
		c.opts.Bridge.SetMainButton(host.MainButton{}, nil)
	}
}

// Render derives the action from the current store state and pushes it to the bridge.
func (c *ButtonController) Render(ctx context.Context) (models.Action, error) {
	snap := c.opts.Store.Snapshot()
	if !snap.Loaded {
		c.push(ctx, models.NewAction(models.ActionNone))
		return models.NewAction(models.ActionNone), nil
	}

	var done models.Completions = models.CompletionSet(nil)
	if c.opts.Ledger != nil {
		set, err := c.opts.Ledger.Completions(ctx, c.opts.Slug, snap.Aggregate.Rules)
		if err != nil {
			return models.Action{}, err
		}
		done = set
	}

	c.mu.Lock()
	checking := c.checking
	c.mu.Unlock()

	action := DeriveActionState(snap.Aggregate.Chat, snap.Aggregate.Rules, snap.Aggregate.Wallet, checking, done)
	c.push(ctx, action)
	return action, nil
}

func (c *ButtonController) Current() models.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *ButtonController) push(ctx context.Context, action models.Action) {
	c.mu.Lock()
	c.current = action
	c.mu.Unlock()

	c.opts.Bridge.SetMainButton(host.MainButton{
		Text:    action.Text,
		Visible: action.Visible(),
		Enabled: action.Kind != models.ActionChecking,
		Loading: action.Kind == models.ActionChecking,
	}, func() {
		if err := c.Press(ctx); err != nil {
			c.toast(err)
		}
	})
}

// Press runs the current action.
func (c *ButtonController) Press(ctx context.Context) error {
	switch c.Current().Kind {
	case models.ActionJoin:
		return c.join()
	case models.ActionCheck:
		return c.check(ctx)
	case models.ActionConnectWallet:
		if c.opts.Wallet == nil {
			return nil
		}
		return c.opts.Wallet.Open(ctx)
	default:
		return nil
	}
}

func (c *ButtonController) join() error {
	url := c.opts.Store.Snapshot().Aggregate.Chat.JoinURL
	if url == "" {
		return ErrNoJoinURL
	}
	c.opts.Bridge.Haptic(host.HapticLight)
	return c.opts.Bridge.OpenLink(url)
}

// check records pending emoji conditions as done by the user and re-reads eligibility.
func (c *ButtonController) check(ctx context.Context) error {
	c.mu.Lock()
	if c.checking {
		c.mu.Unlock()
		return nil
	}
	c.checking = true
	c.mu.Unlock()
	if _, err := c.Render(ctx); err != nil {
		c.opts.Logger.Warn("Failed to render main button", zap.Error(err))
	}

	defer func() {
		c.mu.Lock()
		c.checking = false
		c.mu.Unlock()
		if _, err := c.Render(ctx); err != nil {
			c.opts.Logger.Warn("Failed to render main button", zap.Error(err))
		}
	}()

	if c.opts.Ledger != nil {
		for _, rule := range c.opts.Store.Snapshot().Aggregate.Rules {
			if rule.Type != condition.TypeEmoji {
				continue
			}
			if err := c.opts.Ledger.MarkCompleted(ctx, c.opts.Slug, rule.ID); err != nil {
				return err
			}
		}
	}

	agg, err := c.opts.Chat.Refresh(ctx, c.opts.Slug)
	if err != nil {
		c.opts.Bridge.Haptic(host.HapticError)
		return err
	}
	if agg.Chat.IsEligible {
		c.opts.Bridge.Haptic(host.HapticSuccess)
	} else {
		c.opts.Bridge.Haptic(host.HapticWarning)
	}
	return nil
}

func (c *ButtonController) toast(err error) {
	c.opts.Logger.Warn("Main button action failed", zap.Error(err))
	if c.opts.Toasts.ShouldDisplay(err) {
		c.opts.Bridge.Toast(host.ToastError, apperrors.UserMessage(err))
	}
}
