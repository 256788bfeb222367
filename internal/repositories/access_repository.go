package repositories

import (
	"errors"
	"strings"

	"acervo_backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrGrantNotFound        = errors.New("resource access grant not found")
)

// AccessRepository owns the two mutable grant tables. Both writes are
// upserts keyed on a unique index, so concurrent enrollments converge on a
// single row and last writer wins on the recomputed fields.
type AccessRepository interface {
	WithTx(tx *gorm.DB) AccessRepository

	FindSubscriptionByUserID(userID string) (*models.Subscription, error)
	// UpsertSubscription inserts or, on user_id conflict, updates the plan,
	// active flag, expiry and metadata in place.
	UpsertSubscription(sub *models.Subscription) error

	FindGrant(userID, resourceID string) (*models.ResourceAccess, error)
	// UpsertGrant inserts or, on (user_id, resource_id) conflict, updates
	// the active flag, expiry and metadata in place.
	UpsertGrant(grant *models.ResourceAccess) error
	DeactivateGrant(userID, resourceID string) error
}

type AccessRepositoryImpl struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &AccessRepositoryImpl{db: db}
}

func (r *AccessRepositoryImpl) WithTx(tx *gorm.DB) AccessRepository {
	if tx == nil {
		return r
	}
	return &AccessRepositoryImpl{db: tx}
}

func (r *AccessRepositoryImpl) FindSubscriptionByUserID(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").First(&sub, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *AccessRepositoryImpl) UpsertSubscription(sub *models.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "is_active", "expires_at", "metadata", "updated_at",
		}),
	}).Create(sub).Error
}

func (r *AccessRepositoryImpl) FindGrant(userID, resourceID string) (*models.ResourceAccess, error) {
	var grant models.ResourceAccess
	err := r.db.First(&grant, "user_id = ? AND resource_id = ?", userID, resourceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

func (r *AccessRepositoryImpl) UpsertGrant(grant *models.ResourceAccess) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_active", "expires_at", "metadata", "updated_at",
		}),
	}).Create(grant).Error
}

func (r *AccessRepositoryImpl) DeactivateGrant(userID, resourceID string) error {
	res := r.db.Model(&models.ResourceAccess{}).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// UniqueViolation inspects a storage error for a unique-constraint breach
// (SQLSTATE 23505) and reports the violated constraint name so callers can
// map it to the domain conflict taxonomy.
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return strings.ToLower(pgErr.ConstraintName), true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	return "", false
}
