package grant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	uuid "github.com/satori/go.uuid"
	cs "github.com/webtor-io/common-services"
	"github.com/webtor-io/paypal-permissions/models"
)

// PendingRequest is a permission request awaiting the user's approval.
type PendingRequest struct {
	Scope     []string  `json:"scope"`
	Callback  string    `json:"callback"`
	CreatedAt time.Time `json:"created_at"`
}

type PendingStore interface {
	Put(ctx context.Context, requestToken string, p *PendingRequest, ttl time.Duration) error
	// Get returns the pending request, nil if there is none.
	Get(ctx context.Context, requestToken string) (*PendingRequest, error)
	Delete(ctx context.Context, requestToken string) error
}

type GrantStore interface {
	Create(ctx context.Context, g *models.PermissionGrant) error
	Get(ctx context.Context, id uuid.UUID) (*models.PermissionGrant, error)
	UpdatePersonalData(ctx context.Context, g *models.PermissionGrant) error
}

const pendingKeyPrefix = "paypal-permissions:pending:"

type RedisPendingStore struct {
	cl redis.UniversalClient
}

func NewRedisPendingStore(cl redis.UniversalClient) *RedisPendingStore {
	return &RedisPendingStore{
		cl: cl,
	}
}

func (s *RedisPendingStore) Put(ctx context.Context, requestToken string, p *PendingRequest, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to marshal pending request")
	}
	err = s.cl.Set(ctx, pendingKeyPrefix+requestToken, data, ttl).Err()
	if err != nil {
		return errors.Wrap(err, "failed to store pending request")
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, requestToken string) (*PendingRequest, error) {
	data, err := s.cl.Get(ctx, pendingKeyPrefix+requestToken).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending request")
	}
	var p PendingRequest
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal pending request")
	}
	return &p, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, requestToken string) error {
	err := s.cl.Del(ctx, pendingKeyPrefix+requestToken).Err()
	if err != nil {
		return errors.Wrap(err, "failed to delete pending request")
	}
	return nil
}

type PGGrantStore struct {
	pg *cs.PG
}

func NewPGGrantStore(pg *cs.PG) *PGGrantStore {
	return &PGGrantStore{
		pg: pg,
	}
}

func (s *PGGrantStore) Create(ctx context.Context, g *models.PermissionGrant) error {
	db := s.pg.Get()
	if db == nil {
		return errors.New("database not initialized")
	}
	return models.CreatePermissionGrant(ctx, db, g)
}

func (s *PGGrantStore) Get(ctx context.Context, id uuid.UUID) (*models.PermissionGrant, error) {
	db := s.pg.Get()
	if db == nil {
		return nil, errors.New("database not initialized")
	}
	return models.GetPermissionGrant(ctx, db, id)
}

func (s *PGGrantStore) UpdatePersonalData(ctx context.Context, g *models.PermissionGrant) error {
	db := s.pg.Get()
	if db == nil {
		return errors.New("database not initialized")
	}
	return models.UpdatePermissionGrantPersonalData(ctx, db, g)
}
