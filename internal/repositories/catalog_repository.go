package repositories

import (
	"errors"

	"acervo_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPlanNotFound = errors.New("subscription plan not found")
)

// CatalogRepository serves the read-only plan and product-mapping catalogs
// that enrollment classifies purchases against.
type CatalogRepository interface {
	WithTx(tx *gorm.DB) CatalogRepository

	FindPlanByID(id string) (*models.Plan, error)
	FindPlanBySlug(slug string) (*models.Plan, error)
	FindActivePlans() ([]models.Plan, error)
	// FindPlanByProductIDs returns the first active plan whose billing SKU
	// appears in ids, or ErrPlanNotFound when the purchase maps to no plan.
	FindPlanByProductIDs(ids []string) (*models.Plan, error)
	// ResolveMappings returns the store-scoped mappings for the given
	// product ids with their resources preloaded. Missing ids are simply
	// absent from the result; callers diff against the request.
	ResolveMappings(store models.Store, ids []string) ([]models.ProductMapping, error)
}

type CatalogRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &CatalogRepositoryImpl{db: db}
}

func (r *CatalogRepositoryImpl) WithTx(tx *gorm.DB) CatalogRepository {
	if tx == nil {
		return r
	}
	return &CatalogRepositoryImpl{db: tx}
}

func (r *CatalogRepositoryImpl) FindPlanByID(id string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *CatalogRepositoryImpl) FindPlanBySlug(slug string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.First(&plan, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *CatalogRepositoryImpl) FindActivePlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("is_active = ?", true).Order("name ASC").Find(&plans).Error
	return plans, err
}

func (r *CatalogRepositoryImpl) FindPlanByProductIDs(ids []string) (*models.Plan, error) {
	if len(ids) == 0 {
		return nil, ErrPlanNotFound
	}
	var plan models.Plan
	err := r.db.Where("product_id IN ? AND is_active = ?", ids, true).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *CatalogRepositoryImpl) ResolveMappings(store models.Store, ids []string) ([]models.ProductMapping, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var mappings []models.ProductMapping
	err := r.db.Preload("Resource").
		Where("store = ? AND product_id IN ?", store, ids).
		Find(&mappings).Error
	return mappings, err
}
