// Package session persists recordings: WAV and MP3 codecs plus the on-disk
// store for references, attempts and temporary figures.
package session

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"voicetrainer/audio"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// WAVWriter streams float32 samples into a mono 32-bit IEEE-float WAV file.
// A placeholder header is written up front and rewritten with the final data
// size on Finalize/Close.
type WAVWriter struct {
	file           *os.File
	filePath       string
	sampleRate     int
	samplesWritten int64
	mu             sync.Mutex
}

func NewWAVWriter(filePath string, sampleRate int) (*WAVWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w := &WAVWriter{file: file, filePath: filePath, sampleRate: sampleRate}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *WAVWriter) writeHeader() error {
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}

	const channels, bitsPerSample = 1, 32
	byteRate := w.sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := uint32(w.samplesWritten * int64(bitsPerSample/8))

	w.file.WriteString("RIFF")
	binary.Write(w.file, binary.LittleEndian, uint32(36+dataSize))
	w.file.WriteString("WAVE")

	w.file.WriteString("fmt ")
	binary.Write(w.file, binary.LittleEndian, uint32(16))
	binary.Write(w.file, binary.LittleEndian, uint16(wavFormatFloat))
	binary.Write(w.file, binary.LittleEndian, uint16(channels))
	binary.Write(w.file, binary.LittleEndian, uint32(w.sampleRate))
	binary.Write(w.file, binary.LittleEndian, uint32(byteRate))
	binary.Write(w.file, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w.file, binary.LittleEndian, uint16(bitsPerSample))

	w.file.WriteString("data")
	binary.Write(w.file, binary.LittleEndian, dataSize)
	return nil
}

// Write appends samples to the data chunk.
func (w *WAVWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.samplesWritten += int64(len(samples))
	return nil
}

// Finalize rewrites the header with the real data size.
func (w *WAVWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

func (w *WAVWriter) Close() error {
	if err := w.Finalize(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *WAVWriter) FilePath() string { return w.filePath }

// WriteWAV writes an entire buffer to path in one call.
func WriteWAV(path string, buf *audio.Buffer) error {
	w, err := NewWAVWriter(path, buf.SampleRate)
	if err != nil {
		return err
	}
	if err := w.Write(buf.Samples); err != nil {
		w.file.Close()
		return err
	}
	return w.Close()
}

type wavFormat struct {
	audioFormat   uint16
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// ReadWAV loads a WAV file as mono float32. PCM16 and 32-bit float data are
// supported; multi-channel audio is collapsed to mono by channel averaging.
func ReadWAV(path string) (*audio.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}

	format, pcm, err := parseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	samples, err := decodeSamples(format, pcm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &audio.Buffer{Samples: samples, SampleRate: int(format.sampleRate)}, nil
}

// parseWAV walks the RIFF chunk list and returns the fmt description and the
// raw data chunk bytes.
func parseWAV(data []byte) (wavFormat, []byte, error) {
	var format wavFormat
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	var pcm []byte
	haveFmt := false
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return format, nil, fmt.Errorf("fmt chunk too short")
			}
			format.audioFormat = binary.LittleEndian.Uint16(data[body:])
			format.channels = binary.LittleEndian.Uint16(data[body+2:])
			format.sampleRate = binary.LittleEndian.Uint32(data[body+4:])
			format.bitsPerSample = binary.LittleEndian.Uint16(data[body+14:])
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return format, nil, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return format, nil, fmt.Errorf("missing data chunk")
	}
	if format.channels == 0 || format.sampleRate == 0 {
		return format, nil, fmt.Errorf("invalid fmt chunk (channels=%d rate=%d)",
			format.channels, format.sampleRate)
	}
	return format, pcm, nil
}

func decodeSamples(format wavFormat, pcm []byte) ([]float32, error) {
	channels := int(format.channels)
	bytesPerSample := int(format.bitsPerSample) / 8

	var decode func(frame []byte, ch int) float32
	switch {
	case format.audioFormat == wavFormatPCM && format.bitsPerSample == 16:
		decode = func(frame []byte, ch int) float32 {
			return float32(int16(binary.LittleEndian.Uint16(frame[ch*2:]))) / 32768.0
		}
	case format.audioFormat == wavFormatFloat && format.bitsPerSample == 32:
		decode = func(frame []byte, ch int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(frame[ch*4:]))
		}
	default:
		return nil, fmt.Errorf("unsupported WAV encoding (format=%d bits=%d)",
			format.audioFormat, format.bitsPerSample)
	}

	frameSize := channels * bytesPerSample
	frames := len(pcm) / frameSize
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		frame := pcm[i*frameSize:]
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += decode(frame, ch)
		}
		samples[i] = sum / float32(channels)
	}
	return samples, nil
}
