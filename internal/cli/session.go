package cli

import (
	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange Telegram init data for an access token",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			session, err := app.auth.Authenticate(cmd.Context(), app.bridge.InitData())
			if err != nil {
				return err
			}
			app.println(successStyle.Render("Logged in as " + userLabel(session.UserID, session.Username)))
			return nil
		}),
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			if err := app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			app.println(mutedStyle.Render("Logged out"))
			return nil
		}),
	}
}

func newMeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your profile and linked wallets",
		Args:  cobra.NoArgs,
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			user, err := app.wallets.Me(cmd.Context())
			if err != nil {
				return err
			}
			app.println(renderUser(user))
			return nil
		}),
	}
}
