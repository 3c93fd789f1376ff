package ports

import (
	"context"
	"io"
	"time"
)

// ResetCodeStore keeps short-lived password reset codes.
type ResetCodeStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Consume reports whether code matches the stored one. A match deletes the
	// code; a mismatch counts against the attempt budget.
	Consume(ctx context.Context, email, code string) (bool, error)
}

// CodeSender delivers a reset code out of band.
type CodeSender interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// AvatarStore persists profile images.
type AvatarStore interface {
	Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error)
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}
