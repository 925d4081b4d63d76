package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// ProfileRepo is the MySQL-backed user registry.  It mirrors the
// 'user_profiles' table and satisfies platform.UserRegistry.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// Upsert creates the profile of u.Address or replaces its metadata.
func (r *ProfileRepo) Upsert(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_profiles (address, metadata_uri, updated_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE metadata_uri=VALUES(metadata_uri), updated_at=VALUES(updated_at)`,
		u.Address.Hex(), u.MetadataURI, u.UpdatedAt.UTC())
	return err
}

// Lookup fetches a profile by address.
func (r *ProfileRepo) Lookup(ctx context.Context, addr common.Address) (model.User, error) {
	var (
		u   model.User
		hex string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT address,metadata_uri,updated_at FROM user_profiles WHERE address=? LIMIT 1",
		addr.Hex()).Scan(&hex, &u.MetadataURI, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotRegistered
	}
	if err != nil {
		return model.User{}, err
	}
	u.Address = common.HexToAddress(hex)
	return u, nil
}
