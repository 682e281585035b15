package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"access-tool/internal/common/validation"
	chatmodels "access-tool/internal/features/chat/models"
	"access-tool/internal/features/wallet/models"
	"access-tool/internal/platform/tonconnect"
)

var (
	ErrFlowClosed    = errors.New("wallet flow is closed")
	ErrNoProof       = errors.New("wallet connected without ton_proof")
	ErrProofMismatch = errors.New("ton_proof payload does not match this flow")
)

// WalletAPI is the part of Service the flow needs.
type WalletAPI interface {
	Link(ctx context.Context, req models.LinkRequest) (string, error)
	AwaitTask(ctx context.Context, id string) (models.Task, error)
}

var _ WalletAPI = (*Service)(nil)

// ChatRefresher reloads the chat aggregate after the wallet is linked.
type ChatRefresher interface {
	Refresh(ctx context.Context, slug string) (chatmodels.Aggregate, error)
}

type FlowOptions struct {
	Slug      string
	Connector tonconnect.Connector
	API       WalletAPI
	Chat      ChatRefresher
	// OnLinked is called after the chat has been refreshed with the new wallet.
	OnLinked func(agg chatmodels.Aggregate)
	OnError  func(err error)
	Logger   *zap.Logger
}

// Flow is one wallet connect session for a chat. Each wallet address is processed at most
// once per flow, however many times the connector reports it.
type Flow struct {
	opts FlowOptions

	mu          sync.Mutex
	ctx         context.Context
	state       models.State
	payload     string
	seen        map[string]bool
	unsubscribe func()
	closed      bool
}

func NewFlow(opts FlowOptions) *Flow {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Flow{
		opts:  opts,
		state: models.StateDisconnected,
		seen:  make(map[string]bool),
	}
}

func (f *Flow) State() models.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Payload returns the correlation payload the wallet has to sign.
func (f *Flow) Payload() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload
}

// Open drops any stale wallet session, issues a fresh proof payload and opens the modal.
// ctx bounds the requests made when a wallet arrives.
func (f *Flow) Open(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	f.mu.Unlock()

	if err := f.opts.Connector.Disconnect(ctx); err != nil {
		f.opts.Logger.Warn("Failed to drop stale wallet session", zap.Error(err))
	}

	payload := uuid.NewString()
	f.mu.Lock()
	f.ctx = ctx
	f.payload = payload
	f.state = models.StateConnecting
	if f.unsubscribe == nil {
		f.unsubscribe = f.opts.Connector.OnStatusChange(f.onStatus)
	}
	f.mu.Unlock()

	f.opts.Connector.SetProofPayload(payload)
	return f.opts.Connector.OpenModal(ctx)
}

func (f *Flow) onStatus(w *tonconnect.Wallet) {
	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := f.HandleStatus(ctx, w); err != nil {
		f.opts.Logger.Warn("Wallet status change not processed", zap.Error(err))
		if f.opts.OnError != nil {
			f.opts.OnError(err)
		}
	}
}

// HandleStatus processes one status change. A wallet seen before in this flow is
// ignored. On first sighting the proof is linked, the task awaited and the chat reloaded.
func (f *Flow) HandleStatus(ctx context.Context, w *tonconnect.Wallet) error {
	if w == nil {
		f.mu.Lock()
		if f.state == models.StateConnected {
			f.state = models.StateDisconnected
		}
		f.mu.Unlock()
		return nil
	}

	key, err := validation.RawAddress(w.Account.Address)
	if err != nil {
		return err
	}

	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return ErrFlowClosed
	case f.seen[key]:
		f.mu.Unlock()
		return nil
	case w.Proof == nil:
		f.mu.Unlock()
		return ErrNoProof
	case w.Proof.Payload != f.payload:
		f.mu.Unlock()
		return ErrProofMismatch
	}
	f.seen[key] = true
	f.mu.Unlock()

	taskID, err := f.opts.API.Link(ctx, models.LinkRequest{
		ChatSlug:  f.opts.Slug,
		Address:   w.Account.Address,
		Network:   w.Account.Chain,
		PublicKey: w.Account.PublicKey,
		Proof:     *w.Proof,
	})
	if err != nil {
		f.forget(key)
		return err
	}
	if _, err := f.opts.API.AwaitTask(ctx, taskID); err != nil {
		f.forget(key)
		return err
	}

	f.mu.Lock()
	f.state = models.StateConnected
	f.mu.Unlock()
	f.opts.Logger.Info("Wallet linked",
		zap.String("slug", f.opts.Slug),
		zap.String("address", key),
		zap.String("task_id", taskID))

	if f.opts.Chat == nil {
		return nil
	}
	agg, err := f.opts.Chat.Refresh(ctx, f.opts.Slug)
	if err != nil {
		return err
	}
	if f.opts.OnLinked != nil {
		f.opts.OnLinked(agg)
	}
	return nil
}

// forget lets a wallet whose link failed be retried in the same flow.
func (f *Flow) forget(key string) {
	f.mu.Lock()
	delete(f.seen, key)
	f.mu.Unlock()
}

// Disconnect ends the wallet session and clears the processed wallets.
func (f *Flow) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.state = models.StateDisconnected
	f.seen = make(map[string]bool)
	f.mu.Unlock()
	return f.opts.Connector.Disconnect(ctx)
}

// Close stops listening to the connector. The flow cannot be reopened.
func (f *Flow) Close() {
	f.mu.Lock()
	unsubscribe := f.unsubscribe
	f.unsubscribe = nil
	f.closed = true
	f.state = models.StateDisconnected
	f.seen = make(map[string]bool)
	f.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
