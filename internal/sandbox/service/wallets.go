package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/middleware"
	"access-tool/internal/common/validation"
	walletmodels "access-tool/internal/features/wallet/models"
	"access-tool/internal/platform/tonconnect"
	"access-tool/internal/sandbox/models"
	"access-tool/internal/sandbox/repository"
	"access-tool/internal/workers"
)

const taskWalletLink = "wallet_link"

// Wallets links TON wallets to users. Linking runs as an async task.
type Wallets struct {
	users    repository.UserRepository
	verifier *ProofVerifier
	tasks    *workers.TaskWorker
	logger   *zap.Logger
}

var _ middleware.UserRegistry = (*Wallets)(nil)

func NewWallets(users repository.UserRepository, verifier *ProofVerifier, tasks *workers.TaskWorker, logger *zap.Logger) *Wallets {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallets{users: users, verifier: verifier, tasks: tasks, logger: logger}
}

// EnsureUser registers userID if the token outlived the sandbox state.
func (s *Wallets) EnsureUser(ctx context.Context, userID int64) error {
	_, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		_, err = s.users.UpsertUser(ctx, walletmodels.User{ID: userID})
	}
	return repoError(err)
}

func (s *Wallets) Me(ctx context.Context, userID int64) (walletmodels.User, error) {
	rec, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return walletmodels.User{}, repoError(err)
	}
	if rec.Profile.Wallets == nil {
		rec.Profile.Wallets = []string{}
	}
	return rec.Profile, nil
}

// Link checks the request shape and starts the proof check. The proof itself is
// verified by the task, so a bad signature fails the task rather than the request.
func (s *Wallets) Link(ctx context.Context, userID int64, req walletmodels.LinkRequest) (walletmodels.LinkResponse, error) {
	raw, err := validation.RawAddress(req.Address)
	if err != nil {
		return walletmodels.LinkResponse{}, fieldError("address", "is not a TON address")
	}
	publicKey, err := tonconnect.DecodePublicKey(req.PublicKey)
	if err != nil {
		return walletmodels.LinkResponse{}, fieldError("publicKey", "must be a 32 byte ed25519 key")
	}
	if strings.TrimSpace(req.Proof.Payload) == "" {
		return walletmodels.LinkResponse{}, fieldError("proof", "payload is empty")
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return walletmodels.LinkResponse{}, repoError(err)
	}

	proof := req.Proof
	task, err := s.tasks.Submit(ctx, taskWalletLink, func(ctx context.Context) error {
		if err := s.verifier.Verify(req.Address, publicKey, proof); err != nil {
			return err
		}
		_, err := s.users.UpdateUser(ctx, userID, func(rec *models.UserRecord) error {
			if !slices.Contains(rec.Profile.Wallets, raw) {
				rec.Profile.Wallets = append(rec.Profile.Wallets, raw)
			}
			rec.Wallet = raw
			return nil
		})
		if err == nil {
			s.logger.Info("Wallet linked",
				zap.Int64("user_id", userID),
				zap.String("wallet", raw),
				zap.String("chat_slug", req.ChatSlug))
		}
		return err
	})
	if err != nil {
		return walletmodels.LinkResponse{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to start wallet link")
	}
	return walletmodels.LinkResponse{TaskID: task.ID}, nil
}

// Select makes a linked wallet the current one.
func (s *Wallets) Select(ctx context.Context, userID int64, req walletmodels.SelectRequest) (walletmodels.User, error) {
	raw, err := validation.RawAddress(req.Address)
	if err != nil {
		return walletmodels.User{}, fieldError("address", "is not a TON address")
	}
	rec, err := s.users.UpdateUser(ctx, userID, func(rec *models.UserRecord) error {
		if !slices.Contains(rec.Profile.Wallets, raw) {
			return ErrWalletUnknown
		}
		rec.Wallet = raw
		return nil
	})
	if err != nil {
		return walletmodels.User{}, repoError(err)
	}
	return rec.Profile, nil
}

// Unlink forgets the selected wallet. Unlinking with no wallet selected is a no-op.
func (s *Wallets) Unlink(ctx context.Context, userID int64) error {
	_, err := s.users.UpdateUser(ctx, userID, func(rec *models.UserRecord) error {
		if rec.Wallet == "" {
			return nil
		}
		rec.Profile.Wallets = slices.DeleteFunc(rec.Profile.Wallets, func(w string) bool { return w == rec.Wallet })
		rec.Wallet = ""
		return nil
	})
	if err != nil {
		return repoError(err)
	}
	s.logger.Info("Wallet unlinked", zap.Int64("user_id", userID))
	return nil
}

func (s *Wallets) Task(ctx context.Context, id string) (walletmodels.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return walletmodels.Task{}, repoError(err)
	}
	return task, nil
}
