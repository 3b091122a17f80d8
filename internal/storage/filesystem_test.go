package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "projects/p1/clip.mp4", want: "projects/p1/clip.mp4"},
		{in: "/projects//p1/./clip.mp4", want: "projects/p1/clip.mp4"},
		{in: `projects\p1\a.wav`, want: "projects/p1/a.wav"},
		{in: "../etc/passwd", wantErr: true},
		{in: "a/../../b", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := sanitizeKey(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFileStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	obj, err := store.Put(ctx, "projects/p1/clip-1.mp4", "video/mp4", []byte("frames"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.Key != "projects/p1/clip-1.mp4" || !strings.HasPrefix(obj.URI, "file://") || obj.Size != 6 {
		t.Fatalf("unexpected object %+v", obj)
	}
	data, err := store.Get(ctx, obj.Key)
	if err != nil || string(data) != "frames" {
		t.Fatalf("Get = %q, %v", data, err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := store.Get(ctx, obj.Key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFileStorePublicURL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "https://media.test/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	obj, err := store.Put(context.Background(), "a/b.wav", "audio/wav", []byte{1})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.URI != "https://media.test/a/b.wav" {
		t.Fatalf("unexpected uri %q", obj.URI)
	}
}
