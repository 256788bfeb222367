package repositories

import (
	"context"
	"errors"

	"acervo_backend/internal/entitlement"
	"acervo_backend/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
)

type ResourceTab string

const (
	TabAll  ResourceTab = "all"
	TabMine ResourceTab = "mine"
	TabFree ResourceTab = "free"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ResourceFilter struct {
	Q              string
	EducationLevel string
	Subject        string
	Grade          string
	Tab            ResourceTab
	Page           int
	Limit          int
}

// Normalize clamps pagination and defaults the tab. Unknown taxonomy values
// are left as-is: they match no rows, which is the contract (empty result,
// not an error).
func (f ResourceFilter) Normalize() ResourceFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	switch f.Tab {
	case TabAll, TabMine, TabFree:
	default:
		f.Tab = TabAll
	}
	return f
}

// ResourceWithAccess annotates a catalog row with the caller's access bit,
// computed by the compiled entitlement policy inside the query itself.
type ResourceWithAccess struct {
	models.Resource
	HasAccess bool `gorm:"column:has_access" json:"has_access"`
}

type TabCounts struct {
	All  int64 `json:"all"`
	Mine int64 `json:"mine"`
	Free int64 `json:"free"`
}

type Taxonomy struct {
	EducationLevels []string `json:"education_levels"`
	Subjects        []string `json:"subjects"`
}

// ResourceRepository serves the catalog read models. List and Counts share
// one filter builder and one compiled access predicate so the tab badges can
// never disagree with the page contents for the same filters.
type ResourceRepository interface {
	FindByID(id string) (*models.Resource, error)
	// List returns one page ordered by access desc, title asc, id asc, plus
	// a hasMore flag from a limit+1 probe.
	List(ctx context.Context, in entitlement.Input, filter ResourceFilter) ([]ResourceWithAccess, bool, error)
	// Counts computes the three tab totals with the same predicate as List,
	// as three concurrent aggregate queries.
	Counts(ctx context.Context, in entitlement.Input, filter ResourceFilter) (*TabCounts, error)
	Meta(ctx context.Context) (*Taxonomy, error)
}

type ResourceRepositoryImpl struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &ResourceRepositoryImpl{db: db}
}

func (r *ResourceRepositoryImpl) FindByID(id string) (*models.Resource, error) {
	var resource models.Resource
	err := r.db.First(&resource, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &resource, nil
}

// filtered applies the text and taxonomy filters, without any tab logic.
func (r *ResourceRepositoryImpl) filtered(db *gorm.DB, f ResourceFilter) *gorm.DB {
	q := db.Model(&models.Resource{})
	if f.Q != "" {
		q = q.Where("resources.title ILIKE ?", "%"+f.Q+"%")
	}
	if f.EducationLevel != "" {
		q = q.Where("resources.education_level = ?", f.EducationLevel)
	}
	if f.Subject != "" {
		q = q.Where("resources.subject = ?", f.Subject)
	}
	if f.Grade != "" {
		q = q.Where("resources.grade = ?", f.Grade)
	}
	return q
}

// tabbed narrows the filtered query to one tab using the compiled policy.
// "mine" means unlocked-and-not-free: free items are not a personal
// acquisition. "all" applies no access filter at all.
func (r *ResourceRepositoryImpl) tabbed(q *gorm.DB, tab ResourceTab, accessSQL string, accessArgs []any) *gorm.DB {
	switch tab {
	case TabMine:
		return q.Where("("+accessSQL+") AND resources.is_free = FALSE", accessArgs...)
	case TabFree:
		return q.Where("resources.is_free = TRUE")
	default:
		return q
	}
}

func (r *ResourceRepositoryImpl) List(ctx context.Context, in entitlement.Input, filter ResourceFilter) ([]ResourceWithAccess, bool, error) {
	f := filter.Normalize()
	accessSQL, accessArgs := entitlement.Compile(in)

	q := r.filtered(r.db.WithContext(ctx), f)
	q = r.tabbed(q, f.Tab, accessSQL, accessArgs)

	// limit+1 probe: one extra row answers hasMore without a COUNT.
	probe := f.Limit + 1
	offset := (f.Page - 1) * f.Limit

	var items []ResourceWithAccess
	err := q.
		Select("resources.*, ("+accessSQL+") AS has_access", accessArgs...).
		Order("has_access DESC, resources.title ASC, resources.id ASC").
		Offset(offset).
		Limit(probe).
		Find(&items).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(items) > f.Limit
	if hasMore {
		items = items[:f.Limit]
	}
	return items, hasMore, nil
}

func (r *ResourceRepositoryImpl) Counts(ctx context.Context, in entitlement.Input, filter ResourceFilter) (*TabCounts, error) {
	f := filter.Normalize()
	accessSQL, accessArgs := entitlement.Compile(in)

	counts := &TabCounts{}
	g, gctx := errgroup.WithContext(ctx)

	count := func(tab ResourceTab, dest *int64) func() error {
		return func() error {
			q := r.filtered(r.db.WithContext(gctx), f)
			q = r.tabbed(q, tab, accessSQL, accessArgs)
			return q.Count(dest).Error
		}
	}

	g.Go(count(TabAll, &counts.All))
	g.Go(count(TabMine, &counts.Mine))
	g.Go(count(TabFree, &counts.Free))

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *ResourceRepositoryImpl) Meta(ctx context.Context) (*Taxonomy, error) {
	taxonomy := &Taxonomy{}

	err := r.db.WithContext(ctx).Model(&models.Resource{}).
		Distinct("education_level").
		Where("education_level <> ''").
		Order("education_level ASC").
		Pluck("education_level", &taxonomy.EducationLevels).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&models.Resource{}).
		Distinct("subject").
		Where("subject <> ''").
		Order("subject ASC").
		Pluck("subject", &taxonomy.Subjects).Error
	if err != nil {
		return nil, err
	}

	return taxonomy, nil
}
