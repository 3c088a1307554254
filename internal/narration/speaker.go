package narration

import (
	"context"
	"sync"

	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/rs/zerolog"
)

// Speaker resolves and plays narration, enforcing the one-voice rule:
// starting a new utterance stops whatever is currently playing first.
type Speaker struct {
	resolver *Resolver
	player   Player
	logger   zerolog.Logger

	mu      sync.Mutex
	current Playback
}

// NewSpeaker wires a resolver to a player.
func NewSpeaker(resolver *Resolver, player Player) *Speaker {
	return &Speaker{
		resolver: resolver,
		player:   player,
		logger:   logging.Component("speaker"),
	}
}

// Say resolves text for the given voice and begins playback, returning the
// handle. Any narration already playing is stopped before the new one
// starts, so voices never overlap.
func (s *Speaker) Say(ctx context.Context, text, voice string) (Playback, error) {
	s.Stop()

	audio, err := s.resolver.Resolve(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	pb, err := s.player.Play(ctx, audio)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = pb
	s.mu.Unlock()

	s.logger.Debug().
		Str("voice", voice).
		Str("source", audio.Source).
		Int("bytes", len(audio.Data)).
		Msg("narration playing")
	return pb, nil
}

// Stop halts the current utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current != nil {
		current.Stop()
	}
}

// Speaking reports whether an utterance is currently audible.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Playing()
}
