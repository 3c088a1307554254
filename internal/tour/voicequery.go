package tour

import "sync"

// runVoiceQuery simulates a user speaking a query: the text is played as
// synthesized user speech while a fixed-cadence typewriter reveals it into
// the chat input. Completion is a join, not a race: whichever side finishes
// first waits for the other. Only then is the query submitted and onDone
// invoked.
func (r *Runner) runVoiceQuery(gen uint64, text string, onDone func()) {
	var mu sync.Mutex
	remaining := 2

	part := func() {
		mu.Lock()
		remaining--
		done := remaining == 0
		mu.Unlock()
		if done {
			r.submitQuery(gen, text, onDone)
		}
	}

	r.speakThen(gen, text, r.registry.UserVoice, part)
	r.typewriter(gen, text, part)
}

// typewriter reveals text into the input surface one character per cadence
// tick. Every tick runs on a tracked timer.
func (r *Runner) typewriter(gen uint64, text string, done func()) {
	runes := []rune(text)
	if len(runes) == 0 {
		r.schedule(gen, 0, done)
		return
	}

	var reveal func(i int)
	reveal = func(i int) {
		r.surface.SetInput(string(runes[:i]))
		if i >= len(runes) {
			done()
			return
		}
		r.schedule(gen, r.cfg.TypeCadence, func() { reveal(i + 1) })
	}

	r.schedule(gen, r.cfg.TypeCadence, func() { reveal(1) })
}

// submitQuery pushes the fully revealed query through the chat interface.
// The in-progress flag is reset first: a prior, still-settling submission
// must not silently drop this one.
func (r *Runner) submitQuery(gen uint64, text string, onDone func()) {
	r.mu.Lock()
	if !r.aliveLocked(gen) {
		r.mu.Unlock()
		return
	}
	ctx := r.ctx
	r.mu.Unlock()

	r.surface.AppendTranscript("user", text)
	r.surface.ClearInput()

	if r.chat != nil {
		r.chat.ResetBusy()
		r.chat.SetDraft(text)
		if err := r.chat.Submit(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("voice query submission failed")
		}
	}

	onDone()
}
