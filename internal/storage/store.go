package storage

import "context"

// Object describes a stored media file.
type Object struct {
	Key  string
	URI  string
	MIME string
	Size int
}

// MediaStore keeps generated clips and narration.
type MediaStore interface {
	Put(ctx context.Context, key, mime string, data []byte) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
