package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"plexbanner/internal/banner"
	"plexbanner/internal/store"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	itemsCmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and maintain the item store",
	}
	itemsCmd.AddCommand(newItemsListCommand(ctx))
	itemsCmd.AddCommand(newItemsForgetCommand(ctx))
	itemsCmd.AddCommand(newItemsResetCommand(ctx))
	return itemsCmd
}

type itemOutput struct {
	GUID       string `json:"guid"`
	RatingKey  string `json:"rating_key"`
	Title      string `json:"title"`
	Class      string `json:"class"`
	Resolution string `json:"resolution"`
	HDR        string `json:"hdr"`
	Audio      string `json:"audio"`
	Checked    bool   `json:"checked"`
	Blurred    bool   `json:"blurred"`
	Backup     string `json:"backup,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	CheckedAt  string `json:"checked_at,omitempty"`
}

func toItemOutput(item *store.Item) itemOutput {
	out := itemOutput{
		GUID:       item.GUID,
		RatingKey:  item.RatingKey,
		Title:      item.Title,
		Class:      string(item.Class),
		Resolution: item.Resolution.String(),
		HDR:        item.HDR.String(),
		Audio:      item.Audio.String(),
		Checked:    item.Checked,
		Blurred:    item.Blurred,
		Backup:     item.BackupPath,
		LastError:  item.LastError,
	}
	if item.CheckedAt != nil {
		out.CheckedAt = item.CheckedAt.Local().Format(time.DateTime)
	}
	return out
}

func newItemsListCommand(ctx *commandContext) *cobra.Command {
	var className string
	var unchecked, jsonOut bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded items",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ListFilter{UncheckedOnly: unchecked, Limit: limit}
			if className != "" {
				class, err := banner.ParseClass(className)
				if err != nil {
					return err
				}
				filter.Class = class
			}
			return ctx.withStore(func(st *store.Store) error {
				items, err := st.List(commandContextOrBackground(cmd), filter)
				if err != nil {
					return err
				}
				views := make([]itemOutput, 0, len(items))
				for _, item := range items {
					views = append(views, toItemOutput(item))
				}
				if jsonOut {
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No items recorded")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						v.RatingKey, v.Title, v.Class, v.Resolution, v.HDR, v.Audio, yesNo(v.Checked), v.CheckedAt,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Key", "Title", "Class", "Res", "HDR", "Audio", "Checked", "Checked At"},
					rows, []columnAlignment{alignRight}, shouldColorize(out)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&className, "class", "", "Only items of this poster class")
	cmd.Flags().BoolVar(&unchecked, "unchecked", false, "Only items that still need processing")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items (0 for all)")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newItemsForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <guid>...",
		Short: "Remove items from the store so the next run starts fresh",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				removed := 0
				for _, guid := range args {
					ok, err := st.Delete(commandContextOrBackground(cmd), guid)
					if err != nil {
						return err
					}
					if ok {
						removed++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d items\n", removed, len(args))
				return nil
			})
		},
	}
}

func newItemsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Mark every item unchecked so the next run re-evaluates it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				n, err := st.ResetChecked(commandContextOrBackground(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %s items\n", strconv.FormatInt(n, 10))
				return nil
			})
		},
	}
}
