// Package audio wraps raw synthesized PCM into a playable WAV container.
package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// HeaderSize is the length of a canonical PCM WAV header.
const HeaderSize = 44

const MIMEType = "audio/wav"

// Format describes the PCM samples.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat matches the speech backend output: 24 kHz mono 16-bit.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

func (f Format) withDefaults() Format {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultFormat.SampleRate
	}
	if f.Channels <= 0 {
		f.Channels = DefaultFormat.Channels
	}
	if f.BitsPerSample <= 0 {
		f.BitsPerSample = DefaultFormat.BitsPerSample
	}
	return f
}

// BlockAlign is the byte size of one frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the number of bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Resource is a self contained WAV file.
type Resource struct {
	Data   []byte
	Format Format
}

func (r *Resource) MIME() string { return MIMEType }

// PCMLength returns the number of sample bytes after the header.
func (r *Resource) PCMLength() int {
	return len(r.Data) - HeaderSize
}

// Duration returns the playback length in seconds.
func (r *Resource) Duration() float64 {
	rate := r.Format.ByteRate()
	if rate == 0 {
		return 0
	}
	return float64(r.PCMLength()) / float64(rate)
}

// DataURI returns the resource as an inline data URI.
func (r *Resource) DataURI() string {
	return "data:" + MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// PCMToWAV decodes base64 PCM and prepends a WAV header.
func PCMToWAV(base64PCM string, f Format) (*Resource, error) {
	payload := strings.TrimSpace(base64PCM)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidAudioPayload)
	}
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAudioPayload, err)
	}
	return Encode(pcm, f)
}

// Encode wraps raw PCM bytes in a WAV container. Any non-empty length is
// accepted; a trailing partial frame is kept as is.
func Encode(pcm []byte, f Format) (*Resource, error) {
	f = f.withDefaults()
	if f.BitsPerSample%8 != 0 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", domain.ErrInvalidAudioPayload, f.BitsPerSample)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no samples", domain.ErrInvalidAudioPayload)
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(pcm)))
	writeHeader(buf, len(pcm), f)
	buf.Write(pcm)
	return &Resource{Data: buf.Bytes(), Format: f}, nil
}

func writeHeader(buf *bytes.Buffer, dataLen int, f Format) {
	le := func(v any) { _ = binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	le(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1))
	le(uint16(f.Channels))
	le(uint32(f.SampleRate))
	le(uint32(f.ByteRate()))
	le(uint16(f.BlockAlign()))
	le(uint16(f.BitsPerSample))
	buf.WriteString("data")
	le(uint32(dataLen))
}

// Header is the decoded form of a WAV header.
type Header struct {
	ChunkSize     uint32
	AudioFormat   uint16
	Format        Format
	ByteRate      uint32
	BlockAlign    uint16
	Subchunk2Size uint32
}

// ParseHeader reads the canonical 44 byte header from data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than a header", domain.ErrInvalidAudioPayload, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: missing RIFF/WAVE tags", domain.ErrInvalidAudioPayload)
	}
	le := binary.LittleEndian
	return Header{
		ChunkSize:   le.Uint32(data[4:8]),
		AudioFormat: le.Uint16(data[20:22]),
		Format: Format{
			Channels:      int(le.Uint16(data[22:24])),
			SampleRate:    int(le.Uint32(data[24:28])),
			BitsPerSample: int(le.Uint16(data[34:36])),
		},
		ByteRate:      le.Uint32(data[28:32]),
		BlockAlign:    le.Uint16(data[32:34]),
		Subchunk2Size: le.Uint32(data[40:44]),
	}, nil
}
