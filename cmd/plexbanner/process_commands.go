package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"plexbanner/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var films, tv, jsonOut bool

	cmd := &cobra.Command{
		Use:   "process [rating-key...]",
		Short: "Banner Plex items by rating key or whole libraries",
		Long: "Fetches each item's poster, adds the banners its media calls for, uploads the result " +
			"and labels the item. Without rating keys, --films and --tv select the configured libraries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !films && !tv {
				return errors.New("pass rating keys or select a library with --films/--tv")
			}
			return ctx.withProcessor(func(proc *pipeline.Processor) error {
				runCtx := commandContextOrBackground(cmd)
				keys := args
				if films || tv {
					libraryKeys, err := proc.LibraryKeys(runCtx, films, tv)
					if err != nil {
						return fmt.Errorf("list library: %w", err)
					}
					keys = append(slices.Clone(args), libraryKeys...)
				}
				summary, err := proc.Run(runCtx, keys, proc.Process)
				if err != nil {
					return err
				}
				return printSummary(cmd, summary, jsonOut)
			})
		},
	}

	cmd.Flags().BoolVar(&films, "films", false, "Process every film in plex.films_library")
	cmd.Flags().BoolVar(&tv, "tv", false, "Process every episode and season in plex.tv_library")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "restore <rating-key>...",
		Short: "Upload the stored original poster of processed items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProcessor(func(proc *pipeline.Processor) error {
				summary, err := proc.Run(commandContextOrBackground(cmd), args, proc.Restore)
				if err != nil {
					return err
				}
				return printSummary(cmd, summary, jsonOut)
			})
		},
	}

	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func commandContextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type reportOutput struct {
	RatingKey string   `json:"rating_key"`
	Title     string   `json:"title,omitempty"`
	Class     string   `json:"class,omitempty"`
	Status    string   `json:"status"`
	Banners   []string `json:"banners,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Backup    string   `json:"backup,omitempty"`
	Blurred   bool     `json:"blurred,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type summaryOutput struct {
	RunID   string         `json:"run_id"`
	Items   []reportOutput `json:"items"`
	Counts  map[string]int `json:"counts"`
	Elapsed string         `json:"elapsed"`
}

var summaryStatuses = []pipeline.Status{
	pipeline.StatusUpdated,
	pipeline.StatusUnchanged,
	pipeline.StatusRestored,
	pipeline.StatusSkipped,
	pipeline.StatusFailed,
}

func toSummaryOutput(summary pipeline.Summary) summaryOutput {
	out := summaryOutput{
		RunID:   summary.RunID,
		Counts:  make(map[string]int, len(summaryStatuses)),
		Elapsed: summary.Duration.Round(time.Millisecond).String(),
	}
	for _, status := range summaryStatuses {
		out.Counts[string(status)] = summary.Count(status)
	}
	for _, r := range summary.Reports {
		item := reportOutput{
			RatingKey: r.RatingKey,
			Title:     r.Title,
			Class:     string(r.Class),
			Status:    string(r.Status),
			Backup:    string(r.Backup),
			Blurred:   r.Blurred,
		}
		for _, kind := range r.Actions {
			item.Banners = append(item.Banners, string(kind))
		}
		for _, label := range r.Labels {
			item.Labels = append(item.Labels, string(label))
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary, jsonOut bool) error {
	view := toSummaryOutput(summary)
	if jsonOut {
		return writeJSON(cmd, view)
	}

	out := cmd.OutOrStdout()
	if len(view.Items) == 0 {
		fmt.Fprintln(out, "No items to process")
		return nil
	}
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(view.Items))
	for _, item := range view.Items {
		detail := strings.Join(item.Banners, ", ")
		if item.Error != "" {
			detail = item.Error
		}
		rows = append(rows, []string{
			item.RatingKey,
			item.Title,
			tint(item.Status, statusColors(item.Status), colorize),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Key", "Title", "Status", "Detail"}, rows, []columnAlignment{alignRight}, colorize))

	parts := make([]string, 0, len(summaryStatuses))
	for _, status := range summaryStatuses {
		if n := view.Counts[string(status)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	fmt.Fprintf(out, "Run %s: %s in %s\n", view.RunID, strings.Join(parts, ", "), view.Elapsed)
	return nil
}

func statusColors(status string) text.Colors {
	switch pipeline.Status(status) {
	case pipeline.StatusUpdated, pipeline.StatusRestored:
		return text.Colors{text.FgGreen}
	case pipeline.StatusSkipped:
		return text.Colors{text.FgYellow}
	case pipeline.StatusFailed:
		return text.Colors{text.FgRed}
	}
	return nil
}
