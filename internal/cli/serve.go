package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opentelematics/fleetdeck/internal/chat"
	"github.com/opentelematics/fleetdeck/internal/events"
	"github.com/opentelematics/fleetdeck/internal/fleet"
	"github.com/opentelematics/fleetdeck/internal/httpapi"
	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/opentelematics/fleetdeck/internal/narration"
	"github.com/opentelematics/fleetdeck/internal/stage"
	"github.com/opentelematics/fleetdeck/internal/tour"
)

var (
	serveAddr     string
	serveSilent   bool
	serveAutoplay bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "pace narration without playing audio")
	serveCmd.Flags().BoolVar(&serveAutoplay, "autoplay", false, "start the default tour once the server is up")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and event stream",
	Long: `Serve the fleetdeck HTTP API: tour control, the server-sent event
stream dashboards attach to, chat, narration warm-up, and the fleet data
endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	logger := logging.Component("serve")

	bus := events.NewBus()
	surface := stage.NewRemoteSurface(bus)
	actions := stage.NewRemoteActions(bus)

	resolver := buildResolver(cfg)
	speaker := buildSpeaker(resolver, serveSilent)
	chatClient := buildChat(cfg)
	chatClient.OnMessage(func(msg chat.Message) {
		bus.Publish("chat.message", map[string]any{
			"id":   msg.ID,
			"role": msg.Role,
			"text": msg.Text,
		})
	})

	fleetClient := fleet.NewClient(cfg.Fleet.BaseURL)
	if cfg.Fleet.RequestTimeout > 0 {
		fleetClient.Client.Timeout = cfg.Fleet.RequestTimeout
	}

	cache, err := fleet.OpenCache(cfg.Fleet.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	manager, err := buildManager(cfg, speaker, surface, actions, chatClient, resolver)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(httpapi.Deps{
		Tours: manager,
		Bus:   bus,
		Chat:  chatClient,
		Fleet: fleetClient,
		Cache: cache,
		WarmUp: func(ctx context.Context) (narration.WarmUpResult, error) {
			return warmDefaultTour(ctx, manager, resolver)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer manager.Stop()

	if serveAutoplay || cfg.Tour.Autoplay {
		go func() {
			if err := manager.Start(""); err != nil {
				logger.Warn().Err(err).Msg("autoplay could not start")
			}
		}()
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	return server.Run(ctx, addr)
}

// warmDefaultTour pre-renders every line of the default tour.
func warmDefaultTour(ctx context.Context, manager *tour.Manager, resolver *narration.Resolver) (narration.WarmUpResult, error) {
	def, err := manager.Find("")
	if err != nil {
		return narration.WarmUpResult{}, err
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

	return resolver.WarmUp(ctx, lines), nil
}
