package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "access-tool/internal/common/errors"
	chatmodels "access-tool/internal/features/chat/models"
	"access-tool/internal/platform/host"
)

func newChatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Chats under access control",
	}
	cmd.AddCommand(newChatsListCmd(app))
	cmd.AddCommand(newChatsShowCmd(app))
	cmd.AddCommand(newChatsVisibilityCmd(app))
	cmd.AddCommand(newChatsDescriptionCmd(app))
	cmd.AddCommand(newChatsControlCmd(app))
	cmd.AddCommand(newChatsMoveCmd(app))
	cmd.AddCommand(newChatsAwaitBotCmd(app))
	return cmd
}

func newChatsListCmd(app *App) *cobra.Command {
	var (
		public  bool
		orderBy string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the chats you manage, or the public catalog with --public",
		Args:  cobra.NoArgs,
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			var (
				items []chatmodels.ChatListItem
				err   error
			)
			if public {
				items, err = app.chats.ListPublicChats(cmd.Context(), orderBy)
			} else {
				items, err = app.chats.ListAdminChats(cmd.Context())
			}
			if err != nil {
				return err
			}
			app.println(renderChatList(items))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&public, "public", false, "Show the public chat catalog")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "Catalog order: members, created or title")
	return cmd
}

func newChatsShowCmd(app *App) *cobra.Command {
	var asUser bool

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a chat with its condition groups",
		Args:  cobra.ExactArgs(1),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			fetch := app.chats.FetchChat
			if asUser {
				fetch = app.chats.FetchUserChat
			}
			agg, err := fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			app.println(renderChatHeader(agg.Chat, app.markdownStyle()))
			app.println("")
			app.println(renderChecklist(app.registry, agg.Groups, agg.View))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asUser, "user", false, "Show the member view instead of the admin view")
	return cmd
}

func newChatsVisibilityCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "visibility <slug> <on|off>",
		Short:     "Enable or disable access control for a chat",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[1] {
			case "on":
				enabled = true
			case "off":
			default:
				return apperrors.NewClientValidationError("visibility", "must be on or off")
			}
			chat, err := app.chats.UpdateChatVisibility(cmd.Context(), args[0], enabled)
			if err != nil {
				return err
			}
			status := "disabled"
			if chat.IsEnabled {
				status = "enabled"
			}
			app.bridge.Toast(host.ToastSuccess, fmt.Sprintf("%s is now %s", chat.Title, status))
			return nil
		}),
	}
}

func newChatsDescriptionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "description <slug> <markdown>",
		Short: "Replace the chat description",
		Args:  cobra.ExactArgs(2),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			chat, err := app.chats.UpdateChatDescription(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			app.println(renderMarkdown(chat.Description, app.markdownStyle()))
			return nil
		}),
	}
}

func newChatsControlCmd(app *App) *cobra.Command {
	var (
		full bool
		days int
	)

	cmd := &cobra.Command{
		Use:   "control <slug>",
		Short: "Turn full control (removal of members who stop qualifying) on or off",
		Args:  cobra.ExactArgs(1),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			chat, err := app.chats.UpdateChatControl(cmd.Context(), args[0], full, days)
			if err != nil {
				return err
			}
			app.println(field("Full control", yesNo(chat.IsFullControl)))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&full, "full", false, "Enable full control")
	cmd.Flags().IntVar(&days, "days", 0, "Days before full control takes effect")
	return cmd
}

func newChatsMoveCmd(app *App) *cobra.Command {
	var (
		ruleID  int64
		toGroup int64
		index   int
	)

	cmd := &cobra.Command{
		Use:   "move <slug>",
		Short: "Move a condition to another group or position",
		Args:  cobra.ExactArgs(1),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			slug := args[0]
			agg, err := app.chats.FetchChat(ctx, slug)
			if err != nil {
				return err
			}
			from, ok := groupOf(agg.Groups, ruleID)
			if !ok {
				return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("Condition %d not found", ruleID))
			}
			if toGroup == 0 {
				toGroup = from
			}

			if err := app.chats.MoveCondition(ctx, slug, chatmodels.Move{
				RuleID:      ruleID,
				FromGroupID: from,
				ToGroupID:   toGroup,
				Index:       index,
			}); err != nil {
				return err
			}
			snap := app.chats.Store().Snapshot()
			app.println(renderChecklist(app.registry, snap.Aggregate.Groups, chatmodels.ViewAdmin))
			return nil
		}),
	}

	cmd.Flags().Int64Var(&ruleID, "rule", 0, "Condition id")
	cmd.Flags().Int64Var(&toGroup, "to", 0, "Destination group id (default: the current group)")
	cmd.Flags().IntVar(&index, "index", 0, "Position in the destination group")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func groupOf(groups []chatmodels.Group, ruleID int64) (int64, bool) {
	for _, g := range groups {
		for _, c := range g.Items {
			if c.ID == ruleID {
				return g.ID, true
			}
		}
	}
	return 0, false
}

func newChatsAwaitBotCmd(app *App) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "await-bot <slug>",
		Short: "Wait until the bot has admin rights in the chat",
		Args:  cobra.ExactArgs(1),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			app.println(mutedStyle.Render("Waiting for the bot to become an admin…"))
			chat, err := app.chats.AwaitBotAdmin(ctx, args[0], app.cfg.UI.BotPollInterval)
			if err != nil {
				return err
			}
			app.bridge.Haptic(host.HapticSuccess)
			app.println(successStyle.Render("Bot is an admin of " + chat.Title))
			return nil
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Give up after this long (0 waits forever)")
	return cmd
}
