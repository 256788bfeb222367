package models

type UserRole string
type SubscriptionTier string
type Store string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"

	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"

	// Plan catalog slugs. PlanSlugFree is structural: it must exist in the
	// catalog because enrollment backfills a free subscription row, and the
	// access policy explicitly refuses to treat it as premium.
	PlanSlugFree string = "free"

	StoreHotmart Store = "hotmart"
	StoreKiwify  Store = "kiwify"
)
