package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-budget/internal/shared"
)

const artifactPrefix = "reports:artifact:"

// Artifact describes a rendered export held in the artifact store.
type Artifact struct {
	Name        string    `json:"name"`
	Report      Type      `json:"report"`
	Format      string    `json:"format"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ExportState string

const (
	ExportPending ExportState = "pending"
	ExportReady   ExportState = "ready"
	ExportFailed  ExportState = "failed"
)

// ExportStatus tracks an asynchronous export.
type ExportStatus struct {
	ID        string      `json:"id"`
	Report    Type        `json:"report"`
	Format    string      `json:"format"`
	State     ExportState `json:"state"`
	Artifact  *Artifact   `json:"artifact,omitempty"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ArtifactStore keeps rendered exports and export statuses in Redis with a TTL.
type ArtifactStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewArtifactStore(client *redis.Client, ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ArtifactStore{client: client, ttl: ttl}
}

func (s *ArtifactStore) TTL() time.Duration { return s.ttl }

func (s *ArtifactStore) Put(ctx context.Context, artifact Artifact, data []byte) error {
	meta, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, artifactPrefix+artifact.Name, data, s.ttl)
		pipe.Set(ctx, artifactPrefix+artifact.Name+":meta", meta, s.ttl)
		return nil
	})
	if err != nil {
		return shared.StoreFailure("reports: store artifact", err)
	}
	return nil
}

func (s *ArtifactStore) Get(ctx context.Context, name string) (Artifact, []byte, error) {
	results, err := s.client.MGet(ctx, artifactPrefix+name+":meta", artifactPrefix+name).Result()
	if err != nil {
		return Artifact{}, nil, shared.StoreFailure("reports: load artifact", err)
	}
	meta, ok1 := results[0].(string)
	data, ok2 := results[1].(string)
	if !ok1 || !ok2 {
		return Artifact{}, nil, fmt.Errorf("reports: artifact %s: %w", name, shared.ErrNotFound)
	}
	var artifact Artifact
	if err := json.Unmarshal([]byte(meta), &artifact); err != nil {
		return Artifact{}, nil, shared.StoreFailure("reports: decode artifact", err)
	}
	return artifact, []byte(data), nil
}

func (s *ArtifactStore) SetStatus(ctx context.Context, status ExportStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, artifactPrefix+"status:"+status.ID, raw, s.ttl).Err(); err != nil {
		return shared.StoreFailure("reports: store export status", err)
	}
	return nil
}

func (s *ArtifactStore) Status(ctx context.Context, id string) (ExportStatus, error) {
	raw, err := s.client.Get(ctx, artifactPrefix+"status:"+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return ExportStatus{}, fmt.Errorf("reports: export %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return ExportStatus{}, shared.StoreFailure("reports: load export status", err)
	}
	var status ExportStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return ExportStatus{}, shared.StoreFailure("reports: decode export status", err)
	}
	return status, nil
}
