package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	uuid "github.com/satori/go.uuid"
)

type PermissionGrant struct {
	tableName struct{} `pg:"permission_grant"`

	ID           uuid.UUID `pg:"permission_grant_id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	RequestToken string    `pg:"request_token,notnull" json:"-"`
	AccessToken  string    `pg:"access_token,notnull" json:"-"`
	TokenSecret  string    `pg:"token_secret,notnull" json:"-"`
	Scope        []string  `pg:"scope,array" json:"scope"`
	PayerID      string    `pg:"payer_id" json:"payer_id"`
	Email        string    `pg:"email" json:"email"`
	FirstName    string    `pg:"first_name" json:"first_name"`
	LastName     string    `pg:"last_name" json:"last_name"`
	FullName     string    `pg:"full_name" json:"full_name"`
	Country      string    `pg:"country" json:"country"`
	CreatedAt    time.Time `pg:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt    time.Time `pg:"updated_at,notnull,default:now()" json:"updated_at"`
}

func CreatePermissionGrant(ctx context.Context, db *pg.DB, g *PermissionGrant) error {
	_, err := db.Model(g).
		Context(ctx).
		OnConflict("(access_token) DO UPDATE").
		Set("token_secret = EXCLUDED.token_secret").
		Set("scope = EXCLUDED.scope").
		Set("payer_id = EXCLUDED.payer_id").
		Set("email = EXCLUDED.email").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("full_name = EXCLUDED.full_name").
		Set("country = EXCLUDED.country").
		Set("updated_at = now()").
		Returning("*").
		Insert()
	return err
}

func GetPermissionGrant(ctx context.Context, db *pg.DB, id uuid.UUID) (*PermissionGrant, error) {
	g := new(PermissionGrant)
	err := db.Model(g).
		Context(ctx).
		Where("permission_grant_id = ?", id).
		Select()

	if err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return g, nil
}

func UpdatePermissionGrantPersonalData(ctx context.Context, db *pg.DB, g *PermissionGrant) error {
	g.UpdatedAt = time.Now()
	_, err := db.Model(g).
		Context(ctx).
		Column("payer_id", "email", "first_name", "last_name", "full_name", "country", "updated_at").
		WherePK().
		Update()
	return err
}
