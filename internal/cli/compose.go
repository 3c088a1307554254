package cli

import (
	"context"
	"os"
	"time"

	"github.com/opentelematics/fleetdeck/internal/chat"
	"github.com/opentelematics/fleetdeck/internal/config"
	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/opentelematics/fleetdeck/internal/narration"
	"github.com/opentelematics/fleetdeck/internal/stage"
	"github.com/opentelematics/fleetdeck/internal/tour"
)

// buildResolver assembles the three-tier narration pipeline: in-memory and
// disk caches over the synthesis service, with the local engine as last
// resort.
func buildResolver(cfg *config.Config) *narration.Resolver {
	service := narration.NewServiceClient(cfg.Narration.ServiceURL)
	if cfg.Narration.RequestTimeout > 0 {
		service.Client.Timeout = cfg.Narration.RequestTimeout
	}

	opts := []narration.ResolverOption{
		narration.WithBatchWarmer(service),
		narration.WithLocalEngine(narration.NewLocalEngine(cfg.Narration.LocalEngine)),
	}

	if store, err := narration.NewStore(cfg.Narration.CacheDir); err == nil {
		opts = append(opts, narration.WithStore(store))
	} else {
		logger := logging.Component("cli")
		logger.Warn().Err(err).Str("dir", cfg.Narration.CacheDir).
			Msg("audio cache directory unavailable, running without the disk tier")
	}

	return narration.NewResolver(service, opts...)
}

// buildSpeaker wires the resolver to a playback device. Silent mode paces
// the tour on estimated durations without touching an audio device.
func buildSpeaker(resolver *narration.Resolver, silent bool) tour.Speaker {
	var player narration.Player
	if silent {
		player = &narration.ClockPlayer{}
	} else {
		player = &narration.ExecPlayer{}
	}
	return speakerAdapter{inner: narration.NewSpeaker(resolver, player)}
}

// speakerAdapter narrows narration playback handles to what the runner
// needs.
type speakerAdapter struct {
	inner *narration.Speaker
}

func (a speakerAdapter) Say(ctx context.Context, text, voice string) (tour.Speech, error) {
	playback, err := a.inner.Say(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	return playback, nil
}

func (a speakerAdapter) Stop() {
	a.inner.Stop()
}

func buildChat(cfg *config.Config) *chat.Client {
	backend := chat.NewHTTPBackend(cfg.Chat.BaseURL)
	if cfg.Chat.RequestTimeout > 0 {
		backend.Client.Timeout = cfg.Chat.RequestTimeout
	}
	return chat.NewClient(backend)
}

func tourConfig(cfg *config.Config) tour.Config {
	tc := tour.DefaultConfig()
	if cfg.Tour.PollInterval > 0 {
		tc.PollInterval = cfg.Tour.PollInterval
	}
	if cfg.Tour.WaitTimeout > 0 {
		tc.WaitTimeout = cfg.Tour.WaitTimeout
	}
	if cfg.Tour.TypeCadence > 0 {
		tc.TypeCadence = cfg.Tour.TypeCadence
	}
	return tc
}

// buildManager composes a tour manager over the given surface and actions.
func buildManager(cfg *config.Config, speaker tour.Speaker, surface stage.Surface, actions stage.Actions, chatClient *chat.Client, resolver *narration.Resolver) (*tour.Manager, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	defs, err := tour.LoadDefinitions(wd)
	if err != nil {
		return nil, err
	}

	binder := &tour.Binder{
		Actions:          actions,
		Chat:             chatClient,
		DefaultVoice:     cfg.Narration.Voice,
		DefaultUserVoice: cfg.Narration.UserVoice,
	}

	var warm tour.WarmFunc
	if resolver != nil {
		warm = func(ctx context.Context, lines []tour.Line) {
			batch := make([]narration.Line, len(lines))
			for i, line := range lines {
				batch[i] = narration.Line{Text: line.Text, Voice: line.Voice}
			}
			result := resolver.WarmUp(ctx, batch)
			logger := logging.Component("cli")
			logger.Debug().
				Int("cached", result.Cached).
				Int("generated", result.Generated).
				Int("failed", result.Failed).
				Msg("narration warm-up finished")
		}
	}

	deps := tour.Deps{
		Speaker: speaker,
		Surface: surface,
		Actions: actions,
		Chat:    chatClient,
	}

	manager := tour.NewManager(tourConfig(cfg), binder, deps, warm, defs)
	if chatClient != nil {
		chatClient.SetIntercept(manager.HandlePhrase)
	}
	return manager, nil
}

// waitUntilStopped blocks until the tour ends or the context is canceled.
func waitUntilStopped(ctx context.Context, manager *tour.Manager) {
	tour.WaitFor(ctx, func() bool { return !manager.Running() }, 200*time.Millisecond, 0)
	manager.Stop()
}
