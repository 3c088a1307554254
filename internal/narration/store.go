package narration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a content-addressed on-disk audio cache. Keys are the sha256 of
// voice and normalized text, so identical lines are never re-synthesized
// across process restarts.
type Store struct {
	dir string
}

// NewStore creates the cache directory if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("audio store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ContentKey derives the cache key for a (voice, normalized text) pair.
func ContentKey(text, voice string) string {
	sum := sha256.Sum256([]byte(voice + "\n" + text))
	return hex.EncodeToString(sum[:])
}

// Get loads cached audio, reporting whether it was present.
func (s *Store) Get(text, voice string) (*Audio, bool) {
	key := ContentKey(text, voice)
	for _, format := range []string{"mp3", "wav", "ogg"} {
		data, err := os.ReadFile(s.path(key, format))
		if err != nil {
			continue
		}
		return &Audio{
			Text:   text,
			Voice:  voice,
			Data:   data,
			Format: format,
			Source: "disk",
		}, true
	}
	return nil, false
}

// Put writes audio under its content key. Writes go through a temp file and
// rename so readers never observe partial payloads.
func (s *Store) Put(audio *Audio) error {
	if audio == nil || len(audio.Data) == 0 {
		return fmt.Errorf("audio payload is empty")
	}
	format := audio.Format
	if format == "" {
		format = "mp3"
	}

	key := ContentKey(audio.Text, audio.Voice)
	final := s.path(key, format)

	tmp, err := os.CreateTemp(s.dir, "audio-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(audio.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close audio file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store audio file: %w", err)
	}
	return nil
}

// Len counts stored entries, primarily for diagnostics and tests.
func (s *Store) Len() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasSuffix(entry.Name(), ".tmp") {
			count++
		}
	}
	return count
}

func (s *Store) path(key, format string) string {
	return filepath.Join(s.dir, key+"."+format)
}
