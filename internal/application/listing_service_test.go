package application

import (
	"context"
	"testing"

	"github.com/campusmarket/service-booking/internal/repository/memory"
	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListingService_Lifecycle(t *testing.T) {
	svc := NewListingService(memory.NewListingRepository(), zap.NewNop())
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.CreateListing(ctx, owner, CreateListingRequest{
		Title:       "Same-day laundry",
		Category:    "Laundry",
		Description: "Wash, dry and fold, hostel pickup",
		PriceCents:  25000,
		Location:    "Hall 4",
	})
	require.NoError(t, err)
	assert.Equal(t, "laundry", created.Category)
	assert.Equal(t, "KES", created.Currency)
	assert.Equal(t, "active", created.Status)

	_, err = svc.CreateListing(ctx, owner, CreateListingRequest{Title: "Cheap stuff", Category: "contraband", PriceCents: 100})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateListing(ctx, created.ID, uuid.New(), UpdateListingRequest{PriceCents: ptr(int64(1))})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.UpdateListing(ctx, created.ID, owner, UpdateListingRequest{PriceCents: ptr(int64(30000)), Category: ptr("errands")})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), updated.PriceCents)
	assert.Equal(t, "errands", updated.Category)
	assert.Equal(t, int64(2), updated.Version)

	err = svc.ArchiveListing(ctx, created.ID, uuid.New(), false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.ArchiveListing(ctx, created.ID, uuid.New(), true))

	err = svc.ArchiveListing(ctx, created.ID, owner, false)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	got, err := svc.GetListing(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "archived", got.Status)

	_, err = svc.GetListing(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListingService_Search(t *testing.T) {
	svc := NewListingService(memory.NewListingRepository(), zap.NewNop())
	ctx := context.Background()
	provider := uuid.New()

	for _, req := range []CreateListingRequest{
		{Title: "Physics tutoring", Category: "tutoring", Description: "First-year mechanics", PriceCents: 50000},
		{Title: "Essay proofreading", Category: "tutoring", Description: "Any subject", PriceCents: 30000},
		{Title: "Printing and binding", Category: "printing", Description: "Colour and b/w", PriceCents: 1000},
	} {
		_, err := svc.CreateListing(ctx, provider, req)
		require.NoError(t, err)
	}

	tutoring, err := svc.SearchListings(ctx, "tutoring", "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tutoring.Total)

	text, err := svc.SearchListings(ctx, "", "MECHANICS", 1, 20)
	require.NoError(t, err)
	require.Len(t, text.Items, 1)
	assert.Equal(t, "Physics tutoring", text.Items[0].Title)

	_, err = svc.SearchListings(ctx, "weapons", "", 1, 20)
	assert.ErrorIs(t, err, domain.ErrValidation)

	mine, err := svc.GetProviderListings(ctx, provider, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	assert.Len(t, mine.Items, 2)
}
