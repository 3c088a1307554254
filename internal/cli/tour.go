package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opentelematics/fleetdeck/internal/events"
	"github.com/opentelematics/fleetdeck/internal/stage"
	"github.com/opentelematics/fleetdeck/internal/tour"
)

var (
	tourRunSilent bool
	tourRunTUI    bool
)

func init() {
	rootCmd.AddCommand(tourCmd)
	tourCmd.AddCommand(tourListCmd)
	tourCmd.AddCommand(tourRunCmd)
	tourCmd.AddCommand(tourStepsCmd)

	tourRunCmd.Flags().BoolVar(&tourRunSilent, "silent", false, "pace narration without playing audio")
	tourRunCmd.Flags().BoolVar(&tourRunTUI, "tui", false, "render the tour in a live terminal view")
}

var tourCmd = &cobra.Command{
	Use:   "tour",
	Short: "Run and inspect narrated demo tours",
}

var tourListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tours",
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		defs, err := tour.LoadDefinitions(wd)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(defs))
		for _, def := range defs {
			rows = append(rows, []string{
				def.Name,
				strconv.Itoa(len(def.Steps)),
				def.Source,
				def.Description,
			})
		}
		return writeTable(os.Stdout, []string{"NAME", "STEPS", "SOURCE", "DESCRIPTION"}, rows)
	},
}

var tourRunCmd = &cobra.Command{
	Use:   "run [tour]",
	Short: "Run a tour locally",
	Long: `Run a tour start-to-finish in this terminal: narration through the
host audio device, actions rendered as log lines or in the live view.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		if tourRunTUI {
			return runTourTUI(name)
		}
		return runTourConsole(name)
	},
}

func runTourConsole(name string) error {
	resolver := buildResolver(cfg)
	speaker := buildSpeaker(resolver, tourRunSilent)
	chatClient := buildChat(cfg)
	surface := stage.NewConsoleSurface(os.Stdout)
	actions := stage.NewLogActions()

	manager, err := buildManager(cfg, speaker, surface, actions, chatClient, resolver)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(name); err != nil {
		return err
	}
	waitUntilStopped(ctx, manager)
	return nil
}

func runTourTUI(name string) error {
	if !isInteractive() {
		return fmt.Errorf("the live view requires an interactive terminal")
	}

	bus := events.NewBus()
	surface := stage.NewRemoteSurface(bus)
	actions := stage.NewRemoteActions(bus)

	resolver := buildResolver(cfg)
	speaker := buildSpeaker(resolver, tourRunSilent)
	chatClient := buildChat(cfg)

	manager, err := buildManager(cfg, speaker, surface, actions, chatClient, resolver)
	if err != nil {
		return err
	}
	defer manager.Stop()

	if err := manager.Start(name); err != nil {
		return err
	}
	return stage.Watch(bus)
}

var tourStepsCmd = &cobra.Command{
	Use:   "steps [tour]",
	Short: "Show the steps of a tour",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		defs, err := tour.LoadDefinitions(wd)
		if err != nil {
			return err
		}
		if len(defs) == 0 {
			return fmt.Errorf("no tours available")
		}

		def := defs[0]
		if len(args) == 1 {
			def = nil
			for _, candidate := range defs {
				if candidate.Name == args[0] {
					def = candidate
					break
				}
			}
			if def == nil {
				return fmt.Errorf("unknown tour %q", args[0])
			}
		}

		rows := make([][]string, 0, len(def.Steps))
		for i, step := range def.Steps {
			kind := "narrate"
			switch {
			case step.WaitFor != "":
				kind = "wait " + step.WaitFor
			case step.VoiceQuery != "":
				kind = "voice query"
			case step.Action != "":
				kind = step.Action
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				step.Label,
				kind,
				truncate(firstNonEmptyString(step.Narration, step.VoiceQuery), 60),
			})
		}
		return writeTable(os.Stdout, []string{"#", "LABEL", "KIND", "TEXT"}, rows)
	},
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
