package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tenantrx/recordsapi/internal/db/models"
	"github.com/tenantrx/recordsapi/internal/services/iam"
)

// Login rejection causes.
var (
	ErrUserDisabled = errors.New("user is disabled")
	ErrUserLocked   = errors.New("user is locked")
)

// BunLoginValidator implements iam.LoginValidator: the user must exist and
// be neither disabled nor locked.
type BunLoginValidator struct {
	dbs TenantDBs
}

// NewBunLoginValidator creates a login validator routing through dbs.
func NewBunLoginValidator(dbs TenantDBs) *BunLoginValidator {
	return &BunLoginValidator{dbs: dbs}
}

var _ iam.LoginValidator = (*BunLoginValidator)(nil)

func (v *BunLoginValidator) Validate(ctx context.Context, tenantID string, userID int64) error {
	db, err := v.dbs.DB(ctx, tenantID)
	if err != nil {
		return err
	}

	user := new(models.User)
	err = db.NewSelect().
		Model(user).
		Column("u.id", "u.locked", "u.disabled_at").
		Where("u.id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("get user %d: %w", userID, err)
	}

	if user.DisabledAt != nil {
		return fmt.Errorf("user %d: %w", userID, ErrUserDisabled)
	}
	if user.Locked {
		return fmt.Errorf("user %d: %w", userID, ErrUserLocked)
	}
	return nil
}
