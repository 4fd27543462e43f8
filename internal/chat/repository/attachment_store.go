package repository

import (
	"context"
	"time"

	"campus_market_service/pkg/database"
)

// attachment URLs stay valid long enough for a chat screen refresh cycle
const presignExpiry = 15 * time.Minute

// AttachmentStore resolve message image keys into fetchable URLs. There is
// no upload path here; attachments are written by the bid flow upstream.
type AttachmentStore interface {
	ResolveURL(ctx context.Context, imageKey string) (string, error)
}

type minioAttachmentStore struct {
	client *database.MinIOClient
}

// NewMinIOAttachmentStore create an AttachmentStore over minio
func NewMinIOAttachmentStore(client *database.MinIOClient) AttachmentStore {
	return &minioAttachmentStore{client: client}
}

func (s *minioAttachmentStore) ResolveURL(ctx context.Context, imageKey string) (string, error) {
	return s.client.PresignGetURL(ctx, imageKey, presignExpiry)
}
