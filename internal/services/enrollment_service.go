package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"acervo_backend/internal/auth"
	"acervo_backend/internal/dto"
	"acervo_backend/internal/email"
	"acervo_backend/internal/entitlement"
	"acervo_backend/internal/identity"
	"acervo_backend/internal/logger"
	"acervo_backend/internal/models"
	"acervo_backend/internal/repositories"
	"acervo_backend/internal/whatsapp"
	"acervo_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const tempPasswordLength = 12

// EnrollmentService converges a user's entitlement state to match a purchase
// event, exactly once per distinct event, safely under duplicate delivery.
type EnrollmentService interface {
	Enroll(ctx context.Context, req *dto.EnrollmentRequest) (*dto.EnrollmentResult, error)
}

type enrollmentService struct {
	tx          repositories.Transactor
	userRepo    repositories.UserRepository
	catalogRepo repositories.CatalogRepository
	accessRepo  repositories.AccessRepository
	identity    identity.Provider
	oracle      whatsapp.Oracle
	mailer      email.Mailer
}

func NewEnrollmentService(
	tx repositories.Transactor,
	userRepo repositories.UserRepository,
	catalogRepo repositories.CatalogRepository,
	accessRepo repositories.AccessRepository,
	identityProvider identity.Provider,
	oracle whatsapp.Oracle,
	mailer email.Mailer,
) EnrollmentService {
	return &enrollmentService{
		tx:          tx,
		userRepo:    userRepo,
		catalogRepo: catalogRepo,
		accessRepo:  accessRepo,
		identity:    identityProvider,
		oracle:      oracle,
		mailer:      mailer,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, req *dto.EnrollmentRequest) (*dto.EnrollmentResult, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	now := time.Now().UTC()

	user, isNewUser, tempPassword, err := s.resolveUser(ctx, req, emailAddr)
	if err != nil {
		return nil, err
	}

	// The oracle call happens before any transaction opens: row locks are
	// never held across an uncontrolled-duration network round trip.
	if req.Whatsapp != "" {
		if err := s.guardWhatsapp(ctx, user.ID, req.Whatsapp); err != nil {
			return nil, err
		}
	}

	hadPremium := entitlement.IsActivePremium(entitlement.SubscriptionStateOf(user.Subscription), now)

	// A plan match takes absolute precedence: a premium purchase grants
	// blanket access, so any co-submitted individual product ids are not
	// resolved at all.
	plan, err := s.catalogRepo.FindPlanByProductIDs(req.ProductIDs)
	switch {
	case err == nil:
		result, err := s.enrollPremium(req, user, plan, now)
		if err != nil {
			return nil, err
		}
		s.finish(ctx, result, isNewUser, tempPassword, user)
		return result, nil
	case errors.Is(err, repositories.ErrPlanNotFound):
		result, err := s.enrollIndividual(req, user, hadPremium, now)
		if err != nil {
			return nil, err
		}
		s.finish(ctx, result, isNewUser, tempPassword, user)
		return result, nil
	default:
		return nil, err
	}
}

// resolveUser finds the user by email or creates one: temp password,
// external identity provisioning, local row, then a re-fetch of the
// persisted row.
func (s *enrollmentService) resolveUser(ctx context.Context, req *dto.EnrollmentRequest, emailAddr string) (*models.User, bool, string, error) {
	user, err := s.userRepo.FindByEmail(emailAddr)
	if err == nil {
		return user, false, "", nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, false, "", err
	}

	tempPassword, err := auth.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, false, "", err
	}

	if err := s.identity.SignUpEmail(ctx, req.Name, emailAddr, tempPassword); err != nil {
		return nil, false, "", apperrors.ErrAuthSignupFailed(err)
	}

	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, false, "", err
	}

	newUser := &models.User{
		Name:             req.Name,
		Email:            emailAddr,
		PasswordHash:     hash,
		Role:             models.UserRoleUser,
		SubscriptionTier: models.TierFree,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		// A concurrent delivery of the same event may have won the insert.
		return nil, false, "", translateUnique(err)
	}

	user, err = s.userRepo.FindByEmail(emailAddr)
	if err != nil {
		return nil, false, "", err
	}
	return user, true, tempPassword, nil
}

func (s *enrollmentService) guardWhatsapp(ctx context.Context, userID, number string) error {
	registered, err := s.oracle.IsRegistered(ctx, number)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeExternalServiceError, "enrollment",
			"WhatsApp verification unavailable", http.StatusBadGateway)
	}
	if !registered {
		return apperrors.ErrInvalidWhatsapp
	}

	owner, err := s.userRepo.FindByWhatsapp(number)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if owner.ID != userID {
		return apperrors.ErrDuplicateWhatsapp(nil)
	}
	return nil
}

func (s *enrollmentService) enrollPremium(req *dto.EnrollmentRequest, user *models.User, plan *models.Plan, now time.Time) (*dto.EnrollmentResult, error) {
	var expiresAt *time.Time
	if plan.DurationDays != nil {
		t := now.AddDate(0, 0, *plan.DurationDays)
		expiresAt = &t
	}

	metadata := mustJSON(map[string]any{
		"source":      "enrollment",
		"store":       req.Store,
		"plan":        plan.Name,
		"product_ids": []string(req.ProductIDs),
		"enrolled_at": now.Format(time.RFC3339),
	})

	err := s.tx.Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		access := s.accessRepo.WithTx(tx)

		if err := s.applyContactInfo(users, user, req); err != nil {
			return err
		}

		sub := &models.Subscription{
			UserID:    user.ID,
			PlanID:    plan.ID,
			IsActive:  true,
			ExpiresAt: expiresAt,
			Metadata:  metadata,
		}
		if err := access.UpsertSubscription(sub); err != nil {
			return translateUnique(err)
		}

		return users.UpdateSubscriptionTier(user.ID, models.TierPremium)
	})
	if err != nil {
		return nil, err
	}

	return &dto.EnrollmentResult{
		Kind:     dto.EnrollmentPremium,
		UserID:   user.ID,
		Email:    user.Email,
		PlanName: plan.Name,
	}, nil
}

func (s *enrollmentService) enrollIndividual(req *dto.EnrollmentRequest, user *models.User, hadPremium bool, now time.Time) (*dto.EnrollmentResult, error) {
	mappings, err := s.catalogRepo.ResolveMappings(models.Store(req.Store), req.ProductIDs)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]models.ProductMapping, len(mappings))
	for _, m := range mappings {
		resolved[m.ProductID] = m
	}

	// Unresolvable ids are reported, not fatal: the rest of the batch
	// still applies.
	var notFound []string
	var refs []dto.ResourceRef
	ordered := make([]models.ProductMapping, 0, len(mappings))
	for _, id := range req.ProductIDs {
		m, ok := resolved[id]
		if !ok {
			notFound = append(notFound, id)
			continue
		}
		ordered = append(ordered, m)
		refs = append(refs, dto.ResourceRef{ID: m.ResourceID, Title: m.Resource.Title})
	}

	err = s.tx.Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		access := s.accessRepo.WithTx(tx)
		catalog := s.catalogRepo.WithTx(tx)

		if err := s.applyContactInfo(users, user, req); err != nil {
			return err
		}

		for _, m := range ordered {
			metadata := mustJSON(map[string]any{
				"source":      "enrollment",
				"store":       req.Store,
				"product_id":  m.ProductID,
				"had_premium": hadPremium,
				"enrolled_at": now.Format(time.RFC3339),
			})
			grant := &models.ResourceAccess{
				UserID:     user.ID,
				ResourceID: m.ResourceID,
				IsActive:   true,
				Metadata:   metadata,
			}
			if err := access.UpsertGrant(grant); err != nil {
				return translateUnique(err)
			}
		}

		// Structural invariant: after any purchase every user has exactly
		// one subscription row, at worst pointing at the free plan.
		_, err := access.FindSubscriptionByUserID(user.ID)
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			freePlan, err := catalog.FindPlanBySlug(models.PlanSlugFree)
			if err != nil {
				return err
			}
			sub := &models.Subscription{
				UserID:   user.ID,
				PlanID:   freePlan.ID,
				IsActive: true,
				Metadata: mustJSON(map[string]any{
					"source": "enrollment_backfill",
					"store":  req.Store,
				}),
			}
			if err := access.UpsertSubscription(sub); err != nil {
				return translateUnique(err)
			}
		} else if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.EnrollmentResult{
		Kind:       dto.EnrollmentIndividual,
		UserID:     user.ID,
		Email:      user.Email,
		HasPremium: hadPremium,
		Resources:  refs,
		NotFound:   notFound,
	}, nil
}

// applyContactInfo persists name/cpf/whatsapp from the event onto the user.
func (s *enrollmentService) applyContactInfo(users repositories.UserRepository, user *models.User, req *dto.EnrollmentRequest) error {
	changed := false
	if req.Name != "" && user.Name == "" {
		user.Name = req.Name
		changed = true
	}
	if req.CPF != "" && (user.CPF == nil || *user.CPF != req.CPF) {
		cpf := req.CPF
		user.CPF = &cpf
		changed = true
	}
	if req.Whatsapp != "" && (user.Whatsapp == nil || *user.Whatsapp != req.Whatsapp) {
		number := req.Whatsapp
		user.Whatsapp = &number
		changed = true
	}
	if !changed {
		return nil
	}
	if err := users.Update(user); err != nil {
		return translateUnique(err)
	}
	return nil
}

// finish stamps new-user fields on the result and sends the credentials
// email. Mail failure is logged, never surfaced: the password is already in
// the webhook response.
func (s *enrollmentService) finish(ctx context.Context, result *dto.EnrollmentResult, isNewUser bool, tempPassword string, user *models.User) {
	result.IsNewUser = isNewUser
	if !isNewUser {
		return
	}
	result.TempPassword = tempPassword

	if err := s.mailer.SendWelcome(user.Email, user.Name, tempPassword); err != nil {
		logger.CtxWithError(ctx, "failed to send welcome email", err, "user_id", user.ID)
	}
}

// translateUnique maps storage-level unique violations onto the domain
// conflict taxonomy; anything else passes through unchanged.
func translateUnique(err error) error {
	constraint, ok := repositories.UniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(constraint, "email"):
		return apperrors.ErrDuplicateEmail(err)
	case strings.Contains(constraint, "whatsapp"):
		return apperrors.ErrDuplicateWhatsapp(err)
	default:
		return apperrors.ErrDuplicateEntry(err)
	}
}

func mustJSON(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		// Audit metadata is built from plain maps; a marshal failure here
		// is a programming error.
		panic(err)
	}
	return datatypes.JSON(b)
}
