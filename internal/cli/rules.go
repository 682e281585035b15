package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "access-tool/internal/common/errors"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/features/editor/service"
	"access-tool/internal/features/editor/state"
	"access-tool/internal/features/whitelist"
	"access-tool/internal/platform/host"
)

func newRulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"conditions"},
		Short:   "Create, edit and delete chat conditions",
	}
	cmd.AddCommand(newRulesTypesCmd(app))
	cmd.AddCommand(newRulesNewCmd(app))
	cmd.AddCommand(newRulesEditCmd(app))
	cmd.AddCommand(newRulesDeleteCmd(app))
	return cmd
}

// draftFlags are the inputs shared by new and edit.
type draftFlags struct {
	sets      []string
	usersFile string
	disabled  bool
	dryRun    bool
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "Field value as name=value (repeatable)")
	cmd.Flags().StringVar(&f.usersFile, "users-file", "", "CSV or JSON file with Telegram user ids (whitelist)")
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "Save the condition disabled")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show the form without saving")
}

// patch builds one editor patch from the flags.
func (f *draftFlags) patch(cmd *cobra.Command) (condition.Patch, error) {
	patch, err := parseSets(f.sets)
	if err != nil {
		return nil, err
	}
	if f.usersFile != "" {
		file, err := os.Open(f.usersFile)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		ids, err := whitelist.ParseFile(filepath.Base(f.usersFile), file)
		if err != nil {
			return nil, err
		}
		for k, v := range whitelist.Patch(ids) {
			patch[k] = v
		}
	}
	if cmd.Flags().Changed("disabled") {
		patch["isEnabled"] = !f.disabled
	}
	return patch, nil
}

// parseSets turns name=value pairs into a patch. Values are read as JSON when they parse
// (numbers, booleans, arrays), as plain strings otherwise.
func parseSets(sets []string) (condition.Patch, error) {
	patch := condition.Patch{}
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, apperrors.NewClientValidationError("set", fmt.Sprintf("expected name=value, got %q", s))
		}
		patch[name] = parseValue(value)
	}
	return patch, nil
}

func parseValue(raw string) interface{} {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func (a *App) newEditor() *service.Editor {
	return service.NewEditor(state.NewStore(a.registry), a.conditions, a.registry, a.chats.Store(), a.zlog)
}

func (a *App) entryFor(typeArg string) (registry.Entry, error) {
	if entry, ok := a.registry.Lookup(condition.Type(typeArg)); ok {
		return entry, nil
	}
	if entry, ok := a.registry.ByPath(typeArg); ok {
		return entry, nil
	}
	return registry.Entry{}, apperrors.NewClientValidationError("type", fmt.Sprintf("unknown condition type %q", typeArg))
}

// fill applies the patch and loads the type's server side data the form needs.
func (a *App) fill(ctx context.Context, ed *service.Editor, entry registry.Entry, patch condition.Patch) error {
	if err := ed.Store().UpdateCondition(patch); err != nil {
		return apperrors.NewClientValidationError("set", err.Error())
	}
	if entry.Categories {
		if err := ed.LoadCategories(ctx); err != nil {
			a.log.Warn().Err(err).Str("type", string(entry.Type)).Msg("Categories not loaded")
		}
	}
	if entry.Prefetch {
		if _, err := ed.Prefetch(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) saveDraft(ctx context.Context, ed *service.Editor, entry registry.Entry, slug string, dryRun bool) error {
	draft, _ := ed.Store().Draft()
	a.println(renderForm(entry, draft))
	if dryRun {
		return nil
	}

	saved, err := ed.Save(ctx, slug)
	if err != nil {
		return err
	}
	a.bridge.Toast(host.ToastSuccess, fmt.Sprintf("Saved %s #%d", entry.Label, saved.ID))
	return nil
}

func newRulesTypesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List condition types and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderTypes(app.registry))
			return nil
		},
	}
}

func newRulesNewCmd(app *App) *cobra.Command {
	var (
		flags   draftFlags
		groupID int64
	)

	cmd := &cobra.Command{
		Use:   "new <slug> <type>",
		Short: "Create a condition",
		Long:  "Create a condition. Without --group the condition opens a new group.",
		Args:  cobra.ExactArgs(2),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx, back := host.WithBackButton(cmd.Context(), app.bridge)
			defer back()
			entry, err := app.entryFor(args[1])
			if err != nil {
				return err
			}
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}

			ed := app.newEditor()
			if err := ed.New(entry.Type, groupID); err != nil {
				return err
			}
			if err := app.fill(ctx, ed, entry, patch); err != nil {
				return err
			}
			return app.saveDraft(ctx, ed, entry, args[0], flags.dryRun)
		}),
	}

	flags.register(cmd)
	cmd.Flags().Int64Var(&groupID, "group", 0, "Group to add the condition to")
	return cmd
}

func newRulesEditCmd(app *App) *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "edit <slug> <type> <id>",
		Short: "Change fields of a condition",
		Args:  cobra.ExactArgs(3),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx, back := host.WithBackButton(cmd.Context(), app.bridge)
			defer back()
			entry, id, err := app.ruleArgs(args)
			if err != nil {
				return err
			}
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}

			ed := app.newEditor()
			if err := ed.Load(ctx, args[0], entry.Type, id); err != nil {
				return err
			}
			if len(patch) == 0 {
				draft, _ := ed.Store().Draft()
				app.println(renderForm(entry, draft))
				return nil
			}
			if err := app.fill(ctx, ed, entry, patch); err != nil {
				return err
			}
			return app.saveDraft(ctx, ed, entry, args[0], flags.dryRun)
		}),
	}

	flags.register(cmd)
	return cmd
}

func newRulesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug> <type> <id>",
		Short: "Delete a condition",
		Args:  cobra.ExactArgs(3),
		RunE: app.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entry, id, err := app.ruleArgs(args)
			if err != nil {
				return err
			}
			ed := app.newEditor()
			if err := ed.Load(ctx, args[0], entry.Type, id); err != nil {
				return err
			}
			if err := ed.Delete(ctx, args[0]); err != nil {
				return err
			}
			app.bridge.Toast(host.ToastSuccess, fmt.Sprintf("Deleted %s #%d", entry.Label, id))
			return nil
		}),
	}
}

func (a *App) ruleArgs(args []string) (registry.Entry, int64, error) {
	entry, err := a.entryFor(args[1])
	if err != nil {
		return registry.Entry{}, 0, err
	}
	id, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || id <= 0 {
		return registry.Entry{}, 0, apperrors.NewClientValidationError("id", "must be a positive integer")
	}
	return entry, id, nil
}
