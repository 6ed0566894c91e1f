package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"plexbanner/internal/banner"
	"plexbanner/internal/imagehash"
	"plexbanner/internal/logging"
	"plexbanner/internal/pipeline"
)

type detectOutput struct {
	Path    string         `json:"path"`
	Class   string         `json:"class"`
	Regions []regionOutput `json:"regions"`
}

type regionOutput struct {
	Region   string `json:"region"`
	State    string `json:"state"`
	Distance *int   `json:"distance,omitempty"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var className string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "detect <poster>...",
		Short: "Report which banners a poster file already carries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			class, err := banner.ParseClass(className)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			detector := banner.NewDetector(pipeline.NewReferenceSet(cfg), logger)

			var results []detectOutput
			for _, path := range args {
				result, err := detector.DetectFile(path, class)
				if err != nil {
					return fmt.Errorf("detect %s: %w", path, err)
				}
				results = append(results, toDetectOutput(path, result))
			}
			if jsonOut {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, res := range results {
				rows := make([][]string, 0, len(res.Regions))
				for _, region := range res.Regions {
					distance := "-"
					if region.Distance != nil {
						distance = strconv.Itoa(*region.Distance)
					}
					rows = append(rows, []string{region.Region, tint(region.State, stateColors(region.State), colorize), distance})
				}
				fmt.Fprintf(out, "%s (%s)\n", res.Path, res.Class)
				fmt.Fprintln(out, renderTable([]string{"Region", "State", "Distance"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}, colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&className, "class", string(banner.ClassFilmWide), "Poster class (film, film-mini, episode, season, 3d)")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func toDetectOutput(path string, result banner.DetectionResult) detectOutput {
	names := make([]string, 0, len(result.Regions))
	for name := range result.Regions {
		names = append(names, string(name))
	}
	slices.Sort(names)

	out := detectOutput{Path: path, Class: string(result.Class)}
	for _, name := range names {
		region := regionOutput{Region: name, State: result.State(banner.RegionName(name)).String()}
		if d, ok := result.Distances[banner.RegionName(name)]; ok {
			region.Distance = &d
		}
		out.Regions = append(out.Regions, region)
	}
	return out
}

func stateColors(state string) text.Colors {
	switch state {
	case banner.StatePresent.String():
		return text.Colors{text.FgGreen}
	case banner.StateUnknown.String():
		return text.Colors{text.FgYellow}
	}
	return nil
}

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var (
		className  string
		resolution string
		hdr        string
		audio      string
		threeD     bool
		output     string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "apply <poster>",
		Short: "Add missing banners to a poster file",
		Long: "Detects existing banners, decides which ones the given media attributes call for " +
			"and composites them. The poster is rewritten in place unless --output is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			class, err := banner.ParseClass(className)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			attrs := banner.MediaAttributes{
				Resolution: banner.ParseResolution(resolution),
				HDR:        banner.ParseHDR(hdr),
				Audio:      banner.ParseAudio(audio),
				ThreeD:     threeD,
			}
			if class == banner.ClassFilmWide && threeD && cfg.Banners.Posters3D {
				class = banner.ClassThreeD
			}

			src := args[0]
			poster, err := imagehash.Load(src)
			if err != nil {
				return fmt.Errorf("load poster: %w", err)
			}
			refs := pipeline.NewReferenceSet(cfg)
			spec, err := refs.Spec(class)
			if err != nil {
				return err
			}
			detection, err := banner.NewDetector(refs, logger).Detect(poster, class)
			if err != nil {
				return fmt.Errorf("detect: %w", err)
			}
			decision := spec.Decide(detection, attrs, pipeline.Flags(cfg, class))

			out := cmd.OutOrStdout()
			if len(decision.Actions) == 0 {
				fmt.Fprintln(out, "No banners to add")
				return nil
			}
			kinds := make([]string, 0, len(decision.Actions))
			for _, action := range decision.Actions {
				kinds = append(kinds, string(action.Kind))
			}
			if dryRun {
				fmt.Fprintf(out, "Would add: %s\n", strings.Join(kinds, ", "))
				return nil
			}

			result, err := banner.NewCompositor(refs).Apply(poster, class, decision.Actions)
			if err != nil {
				return err
			}
			dst := src
			if strings.TrimSpace(output) != "" {
				dst = output
			}
			if err := imagehash.SavePNG(dst, result); err != nil {
				return err
			}
			logger.Info("poster bannered",
				logging.String(logging.FieldEventType, "poster_bannered"),
				logging.String("path", dst),
				logging.String(logging.FieldClass, string(class)),
			)
			fmt.Fprintf(out, "Added %s to %s\n", strings.Join(kinds, ", "), filepath.Base(dst))
			return nil
		},
	}

	cmd.Flags().StringVar(&className, "class", string(banner.ClassFilmWide), "Poster class (film, film-mini, episode, season, 3d)")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Media resolution (4k, 1080, 720, sd)")
	cmd.Flags().StringVar(&hdr, "hdr", "", "Dynamic range (dv, hdr10+, hdr10, none)")
	cmd.Flags().StringVar(&audio, "audio", "", "Immersive audio (atmos, dts:x)")
	cmd.Flags().BoolVar(&threeD, "3d", false, "Media is stereoscopic 3D")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here instead of replacing the poster")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report which banners would be added")
	return cmd
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var className string
	var artworkOnly bool
	var cutoff int

	cmd := &cobra.Command{
		Use:   "compare <candidate> <reference>",
		Short: "Report whether two poster files show different artwork",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			class, err := banner.ParseClass(className)
			if err != nil {
				return err
			}
			spec, err := pipeline.NewReferenceSet(cfg).Spec(class)
			if err != nil {
				return err
			}
			detector := spec.WholePoster()
			if artworkOnly {
				detector = spec.ArtworkRegion()
			}
			if !cmd.Flags().Changed("cutoff") {
				cutoff = cfg.Detection.CompareCutoff
			}

			candidate, err := imagehash.Load(args[0])
			if err != nil {
				return fmt.Errorf("load candidate poster: %w", err)
			}
			out := cmd.OutOrStdout()
			reference, err := imagehash.Load(args[1])
			if err != nil {
				fmt.Fprintf(out, "Reference unreadable (%v); treating as changed\n", err)
				fmt.Fprintln(out, "Changed: yes")
				return nil
			}
			distance, err := detector.Distance(candidate, reference)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Distance: %d (cutoff %d)\n", distance, cutoff)
			fmt.Fprintf(out, "Changed: %s\n", yesNo(distance > cutoff))
			return nil
		},
	}

	cmd.Flags().StringVar(&className, "class", string(banner.ClassFilmWide), "Poster class (film, film-mini, episode, season, 3d)")
	cmd.Flags().BoolVar(&artworkOnly, "artwork", false, "Compare only the area banners never cover")
	cmd.Flags().IntVar(&cutoff, "cutoff", 0, "Hash distance above which posters differ (default detection.compare_cutoff)")
	return cmd
}
