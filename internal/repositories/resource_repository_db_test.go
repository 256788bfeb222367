package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"acervo_backend/internal/entitlement"
	"acervo_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB connects to the database named by TEST_DATABASE_URL (or
// DATABASE_URL) and resets the catalog tables. Without a DSN the
// database-backed tests skip, so the unit suite stays runnable anywhere.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database-backed tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
		&models.Resource{},
		&models.ResourceAccess{},
		&models.ProductMapping{},
	))
	require.NoError(t, db.Exec(
		"TRUNCATE resource_accesses, subscriptions, product_mappings, resources, users, plans CASCADE",
	).Error)
	return db
}

type catalogSeed struct {
	userID    string
	premiumID string
	// resource id -> is_free
	isFree map[string]bool
	// resource id -> the grantee's access row, nil when none exists
	grants map[string]*models.ResourceAccess
}

// seedCatalog creates 6 paid and 3 free resources. The grantee user holds
// three live grants plus one expired and one deactivated row; the premium
// user holds an active non-free subscription and no grants.
func seedCatalog(t *testing.T, db *gorm.DB, now time.Time) catalogSeed {
	t.Helper()

	seed := catalogSeed{
		userID:    uuid.NewString(),
		premiumID: uuid.NewString(),
		isFree:    map[string]bool{},
		grants:    map[string]*models.ResourceAccess{},
	}

	for i, u := range []string{seed.userID, seed.premiumID} {
		require.NoError(t, db.Create(&models.User{
			BaseModel:    models.BaseModel{ID: u},
			Name:         fmt.Sprintf("Leitor %d", i),
			Email:        fmt.Sprintf("leitor%d@x.com", i),
			PasswordHash: "x",
			Role:         models.UserRoleUser,
		}).Error)
	}

	plan := &models.Plan{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		Slug:      "anual",
		Name:      "Plano Anual",
		IsActive:  true,
	}
	require.NoError(t, db.Create(plan).Error)
	require.NoError(t, db.Create(&models.Subscription{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		UserID:    seed.premiumID,
		PlanID:    plan.ID,
		IsActive:  true,
	}).Error)

	type spec struct {
		title string
		free  bool
	}
	specs := []spec{
		{"algebra", false},
		{"biologia", false},
		{"fracoes", false}, // duplicate title, id breaks the tie
		{"fracoes", false},
		{"geometria", false},
		{"historia", false},
		{"alfabetizacao", true},
		{"ciencias", true},
		{"leitura", true},
	}

	var paid []string
	for _, s := range specs {
		id := uuid.NewString()
		require.NoError(t, db.Create(&models.Resource{
			BaseModel:      models.BaseModel{ID: id},
			Title:          s.title,
			EducationLevel: "fundamental",
			Subject:        "geral",
			IsFree:         s.free,
		}).Error)
		seed.isFree[id] = s.free
		if !s.free {
			paid = append(paid, id)
		}
	}

	// Three live grants, one lapsed, one revoked.
	past := now.Add(-24 * time.Hour)
	grantRows := []*models.ResourceAccess{
		{ResourceID: paid[0], IsActive: true},
		{ResourceID: paid[1], IsActive: true},
		{ResourceID: paid[2], IsActive: true},
		{ResourceID: paid[3], IsActive: true, ExpiresAt: &past},
		{ResourceID: paid[4], IsActive: false},
	}
	for _, g := range grantRows {
		g.BaseModel = models.BaseModel{ID: uuid.NewString()}
		g.UserID = seed.userID
		require.NoError(t, db.Create(g).Error)
		seed.grants[g.ResourceID] = g
	}

	return seed
}

func granteeInput(seed catalogSeed, now time.Time) entitlement.Input {
	return entitlement.Input{
		User: entitlement.UserContext{ID: seed.userID},
		Now:  now,
	}
}

func TestListAndCountsAgainstDatabase(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	seed := seedCatalog(t, db, now)
	repo := NewResourceRepository(db)
	ctx := context.Background()
	in := granteeInput(seed, now)

	t.Run("page totals match counts with no probe leak", func(t *testing.T) {
		counts, err := repo.Counts(ctx, in, ResourceFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(9), counts.All)
		assert.Equal(t, int64(3), counts.Mine, "only live grants on paid resources are mine")
		assert.Equal(t, int64(3), counts.Free)

		// 9 rows at limit 3: three exactly-full pages. The limit+1 probe
		// must neither leak a 4th row nor report a 4th page.
		seen := map[string]bool{}
		for page := 1; page <= 3; page++ {
			items, hasMore, err := repo.List(ctx, in, ResourceFilter{Page: page, Limit: 3})
			require.NoError(t, err)
			require.Len(t, items, 3, "page %d", page)
			assert.Equal(t, page < 3, hasMore, "page %d", page)
			for _, item := range items {
				assert.False(t, seen[item.ID], "resource %s served twice", item.ID)
				seen[item.ID] = true
			}
		}
		assert.Len(t, seen, 9)
	})

	t.Run("ordering is deterministic with id tie-break", func(t *testing.T) {
		first, _, err := repo.List(ctx, in, ResourceFilter{Limit: 100})
		require.NoError(t, err)
		second, _, err := repo.List(ctx, in, ResourceFilter{Limit: 100})
		require.NoError(t, err)

		require.Len(t, first, 9)
		require.Len(t, second, 9)
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID, "row %d changed between identical queries", i)
		}

		for i := 1; i < len(first); i++ {
			prev, cur := first[i-1], first[i]
			if prev.HasAccess != cur.HasAccess {
				assert.True(t, prev.HasAccess, "accessible rows sort first")
				continue
			}
			if prev.Title != cur.Title {
				assert.Less(t, prev.Title, cur.Title)
				continue
			}
			assert.Less(t, prev.ID, cur.ID, "equal titles must fall back to id order")
		}
	})

	t.Run("compiled rows agree with the evaluator", func(t *testing.T) {
		items, _, err := repo.List(ctx, in, ResourceFilter{Limit: 100})
		require.NoError(t, err)
		require.Len(t, items, 9)

		for _, item := range items {
			rowIn := in
			rowIn.Resource = entitlement.ResourceState{IsFree: seed.isFree[item.ID]}
			rowIn.Grant = entitlement.GrantStateOf(seed.grants[item.ID])
			assert.Equal(t, entitlement.HasAccess(rowIn), item.HasAccess, "resource %s (%s)", item.ID, item.Title)
		}
	})

	t.Run("premium subscriber unlocks every resource", func(t *testing.T) {
		premiumIn := entitlement.Input{
			User:         entitlement.UserContext{ID: seed.premiumID, IsSubscriber: true},
			Subscription: entitlement.SubscriptionState{Exists: true, IsActive: true, PlanSlug: "anual"},
			Now:          now,
		}

		counts, err := repo.Counts(ctx, premiumIn, ResourceFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(9), counts.All)
		assert.Equal(t, int64(6), counts.Mine, "every paid resource is unlocked, free ones are not mine")

		items, _, err := repo.List(ctx, premiumIn, ResourceFilter{Limit: 100})
		require.NoError(t, err)
		for _, item := range items {
			assert.True(t, item.HasAccess, "resource %s", item.Title)
		}
	})

	t.Run("anonymous caller sees only free resources unlocked", func(t *testing.T) {
		anonIn := entitlement.Input{Now: now}

		counts, err := repo.Counts(ctx, anonIn, ResourceFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(9), counts.All)
		assert.Equal(t, int64(0), counts.Mine)

		items, _, err := repo.List(ctx, anonIn, ResourceFilter{Limit: 100})
		require.NoError(t, err)
		for _, item := range items {
			assert.Equal(t, seed.isFree[item.ID], item.HasAccess, "resource %s", item.Title)
		}
	})
}
