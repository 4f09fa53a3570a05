package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"voicetrainer/audio"
)

// Store manages the three working directories: reference recordings, user
// attempts and temporary files (rendered figures).
type Store struct {
	ReferenceDir  string
	RecordingsDir string
	TempDir       string

	log *slog.Logger
}

func NewStore(referenceDir, recordingsDir, tempDir string, logger *slog.Logger) *Store {
	return &Store{
		ReferenceDir:  referenceDir,
		RecordingsDir: recordingsDir,
		TempDir:       tempDir,
		log:           logger,
	}
}

// EnsureDirs creates the working directories if they do not exist.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.ReferenceDir, s.RecordingsDir, s.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// References lists the available reference names (file stems, sorted).
// Both .wav and .mp3 references are recognized.
func (s *Store) References() ([]string, error) {
	entries, err := os.ReadDir(s.ReferenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference directory: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".wav" && ext != ".mp3" {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !seen[stem] {
			seen[stem] = true
			names = append(names, stem)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReferencePath resolves a reference name to a file, trying .wav first.
func (s *Store) ReferencePath(name string) (string, error) {
	for _, ext := range []string{".wav", ".mp3"} {
		path := filepath.Join(s.ReferenceDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("reference not found: %s", name)
}

// LoadReference loads a reference recording as a mono buffer.
func (s *Store) LoadReference(name string) (*audio.Buffer, error) {
	path, err := s.ReferencePath(name)
	if err != nil {
		return nil, err
	}
	return LoadAudio(path)
}

// LoadAudio loads a .wav or .mp3 file by extension.
func LoadAudio(path string) (*audio.Buffer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return ReadWAV(path)
	case ".mp3":
		return ReadMP3(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", path)
	}
}

// NextAttemptPath returns a recordings-dir path for base that does not
// collide with an existing file, appending _2, _3, ... as needed.
func (s *Store) NextAttemptPath(base string) string {
	base = SanitizeName(base)
	path := filepath.Join(s.RecordingsDir, base+".wav")
	for counter := 2; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.RecordingsDir, fmt.Sprintf("%s_%d.wav", base, counter))
	}
}

// TempFigurePath returns a fresh temp-dir path for a rendered figure.
func (s *Store) TempFigurePath() string {
	return filepath.Join(s.TempDir, fmt.Sprintf("comparison_%s.png", uuid.NewString()))
}

// CleanTemp removes and recreates the temporary directory.
func (s *Store) CleanTemp() error {
	if err := os.RemoveAll(s.TempDir); err != nil {
		return fmt.Errorf("failed to clean temp directory: %w", err)
	}
	if err := os.MkdirAll(s.TempDir, 0o755); err != nil {
		return err
	}
	s.log.Info("temp directory cleaned", "dir", s.TempDir)
	return nil
}

// Duration reads the length of a WAV file from its header.
func Duration(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio file: %w", err)
	}
	format, pcm, err := parseWAV(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	frameSize := int(format.channels) * int(format.bitsPerSample) / 8
	if frameSize == 0 {
		return 0, fmt.Errorf("%s: zero frame size", path)
	}
	frames := len(pcm) / frameSize
	return time.Duration(float64(frames) / float64(format.sampleRate) * float64(time.Second)), nil
}

// ValidWAV reports whether path parses as a WAV file with a sane header.
func ValidWAV(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, _, err = parseWAV(data)
	return err == nil
}

// SanitizeName strips characters that are unsafe in file names. An empty
// result falls back to "recording".
func SanitizeName(name string) string {
	const valid = "-_.() abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	for _, c := range name {
		if strings.ContainsRune(valid, c) {
			b.WriteRune(c)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "recording"
	}
	return out
}
