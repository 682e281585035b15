package cli

import (
	"github.com/spf13/cobra"

	chatmodels "access-tool/internal/features/chat/models"
	"access-tool/internal/features/eligibility/models"
	"access-tool/internal/features/eligibility/repository"
	eligibility "access-tool/internal/features/eligibility/service"
	"access-tool/internal/platform/host"
)

func newJoinCmd(app *App) *cobra.Command {
	var press bool

	cmd := &cobra.Command{
		Use:   "join <slug>",
		Short: "Show what a chat requires and the next step to get in",
		Long: "Shows the conditions of a chat and the main button. With --press the button " +
			"action runs: the join link is opened, eligibility is checked again, or a wallet " +
			"is connected (the signed proof is read from stdin).",
		Args: cobra.ExactArgs(1),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx, back := host.WithBackButton(cmd.Context(), app.bridge)
			defer back()
			slug := args[0]

			agg, err := app.chats.FetchUserChat(ctx, slug)
			if err != nil {
				return err
			}
			app.println(renderChatHeader(agg.Chat, app.markdownStyle()))
			app.println("")
			app.println(renderChecklist(app.registry, agg.Groups, chatmodels.ViewUser))

			wallet := app.newLinkSession(slug)
			defer wallet.close()

			button := eligibility.NewButtonController(eligibility.ButtonOptions{
				Slug:   slug,
				Store:  app.chats.Store(),
				Chat:   app.chats,
				Wallet: wallet,
				Ledger: repository.NewEmojiLedger(app.store),
				Bridge: app.bridge,
				Toasts: app.toasts,
				Logger: app.zlog,
			})
			stop := button.Watch(ctx)
			defer stop()

			action, err := button.Render(ctx)
			if err != nil {
				return err
			}
			if !action.Visible() {
				app.println(mutedStyle.Render("Nothing to do here yet"))
				return nil
			}
			if !press {
				return nil
			}

			if err := button.Press(ctx); err != nil {
				return err
			}

			switch action.Kind {
			case models.ActionConnectWallet:
				if err := wallet.submit(app.in); err != nil {
					return err
				}
			case models.ActionCheck:
			default:
				return nil
			}

			snap := app.chats.Store().Snapshot()
			app.println(renderChecklist(app.registry, snap.Aggregate.Groups, chatmodels.ViewUser))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&press, "press", false, "Run the main button action")
	return cmd
}
