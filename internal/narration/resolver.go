package narration

import (
	"context"
	"sync"

	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/rs/zerolog"
)

// BatchWarmer pre-renders a batch of lines server-side.
type BatchWarmer interface {
	WarmUp(ctx context.Context, lines []Line) (*WarmUpResult, error)
}

type cacheKey struct {
	voice string
	text  string
}

// entry is an in-memory cache slot. Until done is closed the entry is an
// in-flight sentinel; concurrent resolutions for the same key wait on it
// instead of issuing a second fetch.
type entry struct {
	done  chan struct{}
	audio *Audio
	err   error
}

// Resolver maps narration text and voice to playable audio through the
// tiered fallback chain.
type Resolver struct {
	service Synthesizer
	warmer  BatchWarmer
	local   Synthesizer
	store   *Store
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[cacheKey]*entry
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithLocalEngine installs the last-resort local synthesizer.
func WithLocalEngine(local Synthesizer) ResolverOption {
	return func(r *Resolver) { r.local = local }
}

// WithStore installs the content-addressed disk tier.
func WithStore(store *Store) ResolverOption {
	return func(r *Resolver) { r.store = store }
}

// WithBatchWarmer installs the server-side batch pre-render endpoint.
func WithBatchWarmer(warmer BatchWarmer) ResolverOption {
	return func(r *Resolver) { r.warmer = warmer }
}

// NewResolver builds a resolver over the given synthesis service.
func NewResolver(service Synthesizer, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		service: service,
		logger:  logging.Component("narration"),
		entries: make(map[cacheKey]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if warmer, ok := service.(BatchWarmer); ok && r.warmer == nil {
		r.warmer = warmer
	}
	return r
}

// Resolve returns audio for the given text and voice, consulting memory,
// disk, the synthesis service, and the local engine in that order. A failed
// resolution is not cached; the next call walks the chain again.
func (r *Resolver) Resolve(ctx context.Context, text, voice string) (*Audio, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, ErrEmptyText
	}
	key := cacheKey{voice: voice, text: normalized}

	r.mu.Lock()
	if e, ok := r.entries[key]; ok {
		r.mu.Unlock()
		select {
		case <-e.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err == nil {
			return e.audio, nil
		}
		// Fall through to a fresh attempt below.
		r.mu.Lock()
		if current, ok := r.entries[key]; ok && current == e {
			delete(r.entries, key)
		}
	}

	e := &entry{done: make(chan struct{})}
	r.entries[key] = e
	r.mu.Unlock()

	audio, err := r.fetch(ctx, normalized, voice)
	e.audio, e.err = audio, err
	close(e.done)

	if err != nil {
		r.mu.Lock()
		if current, ok := r.entries[key]; ok && current == e {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		return nil, err
	}
	return audio, nil
}

// CachedLen reports how many entries the in-memory cache holds.
func (r *Resolver) CachedLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// WarmUp eagerly resolves every line so the actual run plays instantly.
// It first hands the batch to the server-side pre-render endpoint, then
// pulls each line through the normal chain. Advisory only: errors are
// counted, logged, and never propagated as failures of the tour itself.
func (r *Resolver) WarmUp(ctx context.Context, lines []Line) WarmUpResult {
	var result WarmUpResult

	normalized := make([]Line, 0, len(lines))
	for _, line := range lines {
		text := Normalize(line.Text)
		if text == "" {
			continue
		}
		normalized = append(normalized, Line{Text: text, Voice: line.Voice})
	}

	if r.warmer != nil {
		if remote, err := r.warmer.WarmUp(ctx, normalized); err != nil {
			r.logger.Warn().Err(err).Msg("server-side warm-up failed")
		} else {
			r.logger.Debug().
				Int("cached", remote.Cached).
				Int("generated", remote.Generated).
				Int("failed", remote.Failed).
				Msg("server-side warm-up complete")
		}
	}

	for _, line := range normalized {
		if ctx.Err() != nil {
			break
		}
		before := r.cached(line.Text, line.Voice)
		if _, err := r.Resolve(ctx, line.Text, line.Voice); err != nil {
			result.Failed++
			r.logger.Debug().Err(err).Str("voice", line.Voice).Msg("warm-up line failed")
			continue
		}
		if before {
			result.Cached++
		} else {
			result.Generated++
		}
	}

	return result
}

func (r *Resolver) cached(normalizedText, voice string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[cacheKey{voice: voice, text: normalizedText}]
	if !ok {
		return false
	}
	select {
	case <-e.done:
		return e.err == nil
	default:
		return false
	}
}

// fetch walks the disk, service, and local tiers for a normalized line.
func (r *Resolver) fetch(ctx context.Context, text, voice string) (*Audio, error) {
	if r.store != nil {
		if audio, ok := r.store.Get(text, voice); ok {
			return audio, nil
		}
	}

	if r.service != nil {
		audio, err := r.service.Synthesize(ctx, text, voice)
		if err == nil {
			if r.store != nil {
				if storeErr := r.store.Put(audio); storeErr != nil {
					r.logger.Warn().Err(storeErr).Msg("failed to persist audio")
				}
			}
			return audio, nil
		}
		r.logger.Warn().Err(err).Str("voice", voice).Msg("synthesis service failed, trying local engine")
	}

	if r.local != nil {
		audio, err := r.local.Synthesize(ctx, text, voice)
		if err == nil {
			return audio, nil
		}
		r.logger.Warn().Err(err).Msg("local synthesis failed")
		return nil, err
	}

	return nil, ErrNoSynthesizer
}
