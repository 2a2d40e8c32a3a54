package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tenantrx/recordsapi/internal/auth"
	"github.com/tenantrx/recordsapi/internal/db/models"
	"github.com/tenantrx/recordsapi/internal/services/iam"
)

// BunPermissionStore implements iam.PermissionStore over tenant databases.
//
// A partial load reads the user and its validity window only. A full load
// adds the user's roles, the permissions those roles grant, and features.
type BunPermissionStore struct {
	dbs TenantDBs
}

// NewBunPermissionStore creates a permission store routing through dbs.
func NewBunPermissionStore(dbs TenantDBs) *BunPermissionStore {
	return &BunPermissionStore{dbs: dbs}
}

var _ iam.PermissionStore = (*BunPermissionStore)(nil)

// LoadContext returns nil, nil when no identity matches q.
func (s *BunPermissionStore) LoadContext(ctx context.Context, q iam.ContextQuery) (*auth.PermissionContext, error) {
	db, err := s.dbs.DB(ctx, q.TenantID)
	if err != nil {
		return nil, err
	}

	pc := &auth.PermissionContext{}
	var userID int64

	switch {
	case q.Subject != "":
		identity := new(models.ProviderIdentity)
		err := db.NewSelect().
			Model(identity).
			Where("pi.subject = ?", q.Subject).
			Where("pi.identity_system = ?", q.IdentitySystem).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get provider identity %s/%s: %w", q.IdentitySystem, q.Subject, err)
		}
		userID = identity.UserID
		pc.ValidFrom = identity.ValidFrom
		pc.ValidTo = identity.ValidTo

	case q.UserID != nil:
		userID = *q.UserID

	default:
		// client credentials: nothing per-user to load
		if !q.Partial {
			pc.Permissions = &auth.PermissionSet{}
		}
		return pc, nil
	}

	user := new(models.User)
	err = db.NewSelect().Model(user).Where("u.id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	pc.User = &auth.ResolvedUser{ID: user.ID, Username: user.Username}

	if q.Partial {
		return pc, nil
	}

	perms, err := loadPermissionSet(ctx, db, user.ID)
	if err != nil {
		return nil, err
	}
	pc.Permissions = perms
	return pc, nil
}

func loadPermissionSet(ctx context.Context, db bun.IDB, userID int64) (*auth.PermissionSet, error) {
	ps := &auth.PermissionSet{}

	err := db.NewSelect().
		Model((*models.Role)(nil)).
		Column("r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Order("r.name ASC").
		Scan(ctx, &ps.Roles)
	if err != nil {
		return nil, fmt.Errorf("load roles for user %d: %w", userID, err)
	}

	err = db.NewSelect().
		Model((*models.RolePermission)(nil)).
		Distinct().
		Column("rp.permission").
		Join("JOIN user_roles AS ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID).
		Order("rp.permission ASC").
		Scan(ctx, &ps.Permissions)
	if err != nil {
		return nil, fmt.Errorf("load permissions for user %d: %w", userID, err)
	}

	err = db.NewSelect().
		Model((*models.UserFeature)(nil)).
		Column("uf.feature").
		Where("uf.user_id = ?", userID).
		Order("uf.feature ASC").
		Scan(ctx, &ps.Features)
	if err != nil {
		return nil, fmt.Errorf("load features for user %d: %w", userID, err)
	}

	return ps, nil
}
