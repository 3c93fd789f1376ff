package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/printease/printease/internal/core/domain"
)

const (
	avatarBucket   = "avatars"
	maxAvatarBytes = 5 << 20
)

// AvatarStore keeps profile images in a GridFS bucket.
type AvatarStore struct {
	bucket *gridfs.Bucket
}

func NewAvatarStore(db *mongo.Database) (*AvatarStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(avatarBucket))
	if err != nil {
		return nil, fmt.Errorf("avatar bucket: %w", err)
	}
	return &AvatarStore{bucket: bucket}, nil
}

// Upload streams content into GridFS, refusing images over maxAvatarBytes.
func (s *AvatarStore) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	limited := &io.LimitedReader{R: content, N: maxAvatarBytes + 1}
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})

	id, err := s.bucket.UploadFromStream(filename, limited, opts)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if limited.N <= 0 {
		_ = s.bucket.Delete(id)
		return "", domain.Invalid("avatar must be at most 5MB")
	}
	return id.Hex(), nil
}

// Open returns a reader over the stored image and its content type.
func (s *AvatarStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", domain.ErrAvatarNotFound
	}

	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", domain.ErrAvatarNotFound
		}
		return nil, "", fmt.Errorf("open avatar: %w", err)
	}

	contentType := "application/octet-stream"
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return stream, contentType, nil
}
