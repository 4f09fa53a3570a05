package session

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	shine "github.com/braheezy/shine-mp3/pkg/mp3"
	gomp3 "github.com/hajimehoshi/go-mp3"

	"voicetrainer/audio"
)

// ReadMP3 decodes an MP3 file to mono float32 at the file's own sample
// rate. go-mp3 always decodes to 16-bit stereo; channels are averaged.
func ReadMP3(path string) (*audio.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer file.Close()

	decoder, err := gomp3.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3 file: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	// Interleaved signed 16-bit stereo, 4 bytes per frame.
	frames := len(pcm) / 4
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		samples[i] = (float32(left) + float32(right)) / 2 / 32768.0
	}

	return &audio.Buffer{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}

// ExportMP3 encodes a buffer to an MP3 file using the pure-Go shine
// encoder.
func ExportMP3(path string, buf *audio.Buffer) error {
	if buf.Empty() {
		return fmt.Errorf("no audio data to export")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create MP3 file: %w", err)
	}
	if err := encodeMP3(file, buf); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func encodeMP3(w io.Writer, buf *audio.Buffer) error {
	pcm := make([]int16, len(buf.Samples))
	for i, s := range buf.Samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		pcm[i] = int16(s * 32767)
	}

	encoder := shine.NewEncoder(buf.SampleRate, 1)
	if err := encoder.Write(w, pcm); err != nil {
		return fmt.Errorf("failed to encode MP3 data: %w", err)
	}
	return nil
}
