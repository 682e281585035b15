package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	chatmodels "access-tool/internal/features/chat/models"
	walletmodels "access-tool/internal/features/wallet/models"
	walletservice "access-tool/internal/features/wallet/service"
	"access-tool/internal/platform/host"
	"access-tool/internal/platform/tonconnect"
)

var ErrNotLinked = errors.New("wallet was not linked")

// linkSession is one wallet connect attempt over the manual connector: the payload is
// printed, the signed proof is read back.
type linkSession struct {
	connector *tonconnect.Manual
	flow      *walletservice.Flow

	mu  sync.Mutex
	err error
}

func (a *App) newLinkSession(slug string) *linkSession {
	s := &linkSession{connector: tonconnect.NewManual(a.out)}
	opts := walletservice.FlowOptions{
		Slug:      slug,
		Connector: s.connector,
		API:       a.wallets,
		OnLinked: func(agg chatmodels.Aggregate) {
			a.bridge.Haptic(host.HapticSuccess)
		},
		OnError: func(err error) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		},
		Logger: a.zlog,
	}
	if slug != "" {
		opts.Chat = a.chats
	}
	s.flow = walletservice.NewFlow(opts)
	return s
}

// Open implements the wallet opener of the main button.
func (s *linkSession) Open(ctx context.Context) error {
	return s.flow.Open(ctx)
}

// submit reads one wallet JSON document and reports it to the flow. The flow handles it
// before Submit returns.
func (s *linkSession) submit(r io.Reader) error {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	line = bytes.TrimSpace(line)
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return fmt.Errorf("failed to read wallet proof: %w", err)
	}

	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()

	if _, err := s.connector.Submit(line); err != nil {
		return err
	}

	s.mu.Lock()
	err = s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.flow.State() != walletmodels.StateConnected {
		return ErrNotLinked
	}
	return nil
}

func (s *linkSession) close() {
	s.flow.Close()
}

func newWalletCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Link, select and unlink TON wallets",
	}
	cmd.AddCommand(newWalletLinkCmd(app))
	cmd.AddCommand(newWalletSelectCmd(app))
	cmd.AddCommand(newWalletUnlinkCmd(app))
	return cmd
}

func newWalletLinkCmd(app *App) *cobra.Command {
	var (
		slug      string
		proofFile string
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a wallet by signing a ton_proof payload",
		Long: "Prints a ton_proof payload, then reads the signed wallet JSON from stdin " +
			"(or --proof-file). The whole exchange is bounded by WALLET_TASK_POLL_TIMEOUT.",
		Args: cobra.NoArgs,
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), app.cfg.Wallet.TaskPollTimeout)
			defer cancel()

			session := app.newLinkSession(slug)
			defer session.close()
			if err := session.Open(ctx); err != nil {
				return err
			}

			in := app.in
			if proofFile != "" {
				f, err := os.Open(proofFile)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			if err := session.submit(in); err != nil {
				return err
			}
			app.bridge.Toast(host.ToastSuccess, "Wallet linked")
			return nil
		}),
	}

	cmd.Flags().StringVar(&slug, "chat", "", "Chat the wallet is linked for")
	cmd.Flags().StringVar(&proofFile, "proof-file", "", "Read the signed wallet JSON from a file")
	return cmd
}

func newWalletSelectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <address>",
		Short: "Make a linked wallet the active one",
		Args:  cobra.ExactArgs(1),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			if err := app.wallets.Select(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.bridge.Toast(host.ToastSuccess, "Wallet selected")
			return nil
		}),
	}
}

func newWalletUnlinkCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Unlink the active wallet",
		Args:  cobra.NoArgs,
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			if err := app.wallets.Unlink(cmd.Context()); err != nil {
				return err
			}
			app.bridge.Toast(host.ToastInfo, "Wallet unlinked")
			return nil
		}),
	}
}
