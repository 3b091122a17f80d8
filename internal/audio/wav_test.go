package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

func TestPCMToWAVHeaderLengths(t *testing.T) {
	for _, n := range []int{2, 48, 48000} {
		pcm := bytes.Repeat([]byte{0x01, 0x80}, n/2)
		res, err := PCMToWAV(base64.StdEncoding.EncodeToString(pcm), DefaultFormat)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(res.Data) != HeaderSize+n {
			t.Fatalf("n=%d: expected %d bytes, got %d", n, HeaderSize+n, len(res.Data))
		}
		h, err := ParseHeader(res.Data)
		if err != nil {
			t.Fatalf("n=%d: parse: %v", n, err)
		}
		if h.ChunkSize != uint32(36+n) || h.Subchunk2Size != uint32(n) {
			t.Fatalf("n=%d: unexpected sizes chunk=%d data=%d", n, h.ChunkSize, h.Subchunk2Size)
		}
		if !bytes.Equal(res.Data[HeaderSize:], pcm) {
			t.Fatalf("n=%d: samples altered", n)
		}
	}
}

func TestPCMToWAVKeepsPartialFrames(t *testing.T) {
	for _, n := range []int{1, 3, 47} {
		pcm := bytes.Repeat([]byte{0x7F}, n)
		res, err := PCMToWAV(base64.StdEncoding.EncodeToString(pcm), DefaultFormat)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		h, err := ParseHeader(res.Data)
		if err != nil {
			t.Fatalf("n=%d: parse: %v", n, err)
		}
		if len(res.Data) != HeaderSize+n || h.ChunkSize != uint32(36+n) || h.Subchunk2Size != uint32(n) {
			t.Fatalf("n=%d: unexpected sizes len=%d chunk=%d data=%d", n, len(res.Data), h.ChunkSize, h.Subchunk2Size)
		}
	}
}

func TestHeaderBytes(t *testing.T) {
	res, err := Encode([]byte{0xAA, 0xBB, 0xCC, 0xDD}, Format{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{
		'R', 'I', 'F', 'F', 40, 0, 0, 0, 'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
		0xC0, 0x5D, 0, 0, // 24000
		0x80, 0xBB, 0, 0, // 48000
		2, 0, 16, 0,
		'd', 'a', 't', 'a', 4, 0, 0, 0,
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	if !bytes.Equal(res.Data, want) {
		t.Fatalf("header mismatch:\n got % x\nwant % x", res.Data, want)
	}
	if res.Duration() <= 0 {
		t.Fatal("expected positive duration")
	}
	if !strings.HasPrefix(res.DataURI(), "data:audio/wav;base64,UklGR") {
		t.Fatalf("unexpected data uri prefix %q", res.DataURI()[:30])
	}
}

func TestStereoFormat(t *testing.T) {
	res, err := Encode(make([]byte, 8), Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, _ := ParseHeader(res.Data)
	if h.BlockAlign != 4 || h.ByteRate != 44100*4 || h.Format.Channels != 2 {
		t.Fatalf("unexpected header %+v", h)
	}
}

func TestInvalidPayloads(t *testing.T) {
	tests := map[string]string{
		"empty":      "",
		"blank":      "   ",
		"not base64": "%%%not-base64%%%",
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := PCMToWAV(payload, DefaultFormat)
			if !errors.Is(err, domain.ErrInvalidAudioPayload) {
				t.Fatalf("expected ErrInvalidAudioPayload, got %v", err)
			}
		})
	}
	if _, err := ParseHeader([]byte("RIFF")); !errors.Is(err, domain.ErrInvalidAudioPayload) {
		t.Fatalf("expected short header error, got %v", err)
	}
}
