package services

import (
	"context"
	"errors"
	"time"

	"acervo_backend/internal/dto"
	"acervo_backend/internal/entitlement"
	"acervo_backend/internal/models"
	"acervo_backend/internal/repositories"

	"golang.org/x/sync/errgroup"
)

// CatalogService serves the resource read models. List, Counts and Meta can
// be called independently or composed through Summary, which runs the three
// concurrently since they are mutually independent reads.
type CatalogService interface {
	List(ctx context.Context, userID string, query dto.ResourceFilterQuery) (*dto.ResourceListResponse, error)
	Counts(ctx context.Context, userID string, query dto.ResourceFilterQuery) (*repositories.TabCounts, error)
	Meta(ctx context.Context, userID string) (*dto.ResourceMetaResponse, error)
	Summary(ctx context.Context, userID string, query dto.ResourceFilterQuery) (*dto.ResourceSummaryResponse, error)

	// CheckAccess answers the single-resource question with the in-memory
	// interpreter of the same policy the bulk queries compile.
	CheckAccess(ctx context.Context, userID, resourceID string) (*repositories.ResourceWithAccess, error)

	Plans() ([]models.Plan, error)

	GrantAccess(userID, resourceID string, expiresAt *time.Time) error
	RevokeAccess(userID, resourceID string) error
}

type catalogService struct {
	resourceRepo repositories.ResourceRepository
	userRepo     repositories.UserRepository
	accessRepo   repositories.AccessRepository
	catalogRepo  repositories.CatalogRepository
}

func NewCatalogService(
	resourceRepo repositories.ResourceRepository,
	userRepo repositories.UserRepository,
	accessRepo repositories.AccessRepository,
	catalogRepo repositories.CatalogRepository,
) CatalogService {
	return &catalogService{
		resourceRepo: resourceRepo,
		userRepo:     userRepo,
		accessRepo:   accessRepo,
		catalogRepo:  catalogRepo,
	}
}

// accessInput resolves the caller into policy input. An empty userID is an
// anonymous caller; an unknown userID degrades to anonymous rather than
// erroring, so a stale token cannot break the public catalog.
func (s *catalogService) accessInput(userID string) (entitlement.Input, *models.User) {
	in := entitlement.Input{Now: time.Now().UTC()}
	if userID == "" {
		return in, nil
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return in, nil
	}

	in.User = entitlement.UserContext{
		ID:           user.ID,
		IsAdmin:      user.IsAdmin(),
		IsSubscriber: entitlement.IsActivePremium(entitlement.SubscriptionStateOf(user.Subscription), in.Now),
	}
	in.Subscription = entitlement.SubscriptionStateOf(user.Subscription)
	return in, user
}

func (s *catalogService) List(ctx context.Context, userID string, query dto.ResourceFilterQuery) (*dto.ResourceListResponse, error) {
	in, _ := s.accessInput(userID)
	filter := query.ToFilter()

	items, hasMore, err := s.resourceRepo.List(ctx, in, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repositories.ResourceWithAccess{}
	}

	return &dto.ResourceListResponse{
		Items: items,
		Pagination: dto.Pagination{
			Page:    filter.Page,
			Limit:   filter.Limit,
			HasMore: hasMore,
		},
	}, nil
}

func (s *catalogService) Counts(ctx context.Context, userID string, query dto.ResourceFilterQuery) (*repositories.TabCounts, error) {
	in, _ := s.accessInput(userID)
	return s.resourceRepo.Counts(ctx, in, query.ToFilter())
}

func (s *catalogService) Meta(ctx context.Context, userID string) (*dto.ResourceMetaResponse, error) {
	in, user := s.accessInput(userID)

	taxonomy, err := s.resourceRepo.Meta(ctx)
	if err != nil {
		return nil, err
	}

	meta := &dto.ResourceMetaResponse{
		EducationLevels: taxonomy.EducationLevels,
		Subjects:        taxonomy.Subjects,
		User: dto.UserMeta{
			IsAdmin:      in.User.IsAdmin,
			IsSubscriber: in.User.IsSubscriber,
		},
	}
	if user != nil {
		meta.User.Role = string(user.Role)
	}
	return meta, nil
}

func (s *catalogService) Summary(ctx context.Context, userID string, query dto.ResourceFilterQuery) (*dto.ResourceSummaryResponse, error) {
	summary := &dto.ResourceSummaryResponse{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.List(gctx, userID, query)
		summary.List = list
		return err
	})
	g.Go(func() error {
		counts, err := s.Counts(gctx, userID, query)
		summary.Counts = counts
		return err
	})
	g.Go(func() error {
		meta, err := s.Meta(gctx, userID)
		summary.Meta = meta
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *catalogService) CheckAccess(ctx context.Context, userID, resourceID string) (*repositories.ResourceWithAccess, error) {
	resource, err := s.resourceRepo.FindByID(resourceID)
	if err != nil {
		return nil, err
	}

	in, _ := s.accessInput(userID)
	in.Resource = entitlement.ResourceState{IsFree: resource.IsFree}

	if userID != "" {
		grant, err := s.accessRepo.FindGrant(userID, resourceID)
		if err != nil && !errors.Is(err, repositories.ErrGrantNotFound) {
			return nil, err
		}
		in.Grant = entitlement.GrantStateOf(grant)
	}

	return &repositories.ResourceWithAccess{
		Resource:  *resource,
		HasAccess: entitlement.HasAccess(in),
	}, nil
}

func (s *catalogService) Plans() ([]models.Plan, error) {
	return s.catalogRepo.FindActivePlans()
}

func (s *catalogService) GrantAccess(userID, resourceID string, expiresAt *time.Time) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		return err
	}
	if _, err := s.resourceRepo.FindByID(resourceID); err != nil {
		return err
	}

	return s.accessRepo.UpsertGrant(&models.ResourceAccess{
		UserID:     userID,
		ResourceID: resourceID,
		IsActive:   true,
		ExpiresAt:  expiresAt,
	})
}

func (s *catalogService) RevokeAccess(userID, resourceID string) error {
	return s.accessRepo.DeactivateGrant(userID, resourceID)
}
