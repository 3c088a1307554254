package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentelematics/fleetdeck/internal/narration"
	"github.com/opentelematics/fleetdeck/internal/tour"
)

func init() {
	rootCmd.AddCommand(warmupCmd)
}

var warmupCmd = &cobra.Command{
	Use:   "warmup [tour]",
	Short: "Pre-render narration audio for a tour",
	Long: `Resolve every narration line of a tour through the synthesis
pipeline so a later run plays from cache with no first-use latency.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		defs, err := tour.LoadDefinitions(wd)
		if err != nil {
			return err
		}

		manager := tour.NewManager(tourConfig(cfg), nil, tour.Deps{}, nil, defs)
		def, err := manager.Find(name)
		if err != nil {
			return err
		}

		lines := make([]narration.Line, 0, len(def.Steps)*2)
		for _, step := range def.Steps {
			if step.Narration != "" {
				lines = append(lines, narration.Line{Text: step.Narration, Voice: cfg.Narration.Voice})
			}
			if step.ResultNarration != "" {
				lines = append(lines, narration.Line{Text: step.ResultNarration, Voice: cfg.Narration.Voice})
			}
			if step.VoiceQuery != "" {
				lines = append(lines, narration.Line{Text: step.VoiceQuery, Voice: cfg.Narration.UserVoice})
			}
		}

		resolver := buildResolver(cfg)
		result := resolver.WarmUp(context.Background(), lines)

		fmt.Printf("tour %s: %d cached, %d generated, %d failed\n",
			def.Name, result.Cached, result.Generated, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d line(s) could not be rendered", result.Failed)
		}
		return nil
	},
}
