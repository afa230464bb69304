package review

import (
	"strings"
	"testing"

	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReview(t *testing.T) {
	r, err := NewReview(uuid.New(), uuid.New(), uuid.New(), uuid.New(), 4, "  on time, clean shirts ")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Rating())
	assert.Equal(t, "on time, clean shirts", r.Comment())
}

func TestNewReview_Validation(t *testing.T) {
	tests := []struct {
		name    string
		rating  int
		comment string
	}{
		{"rating too low", 0, ""},
		{"rating too high", 6, ""},
		{"comment too long", 3, strings.Repeat("x", maxCommentLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReview(uuid.New(), uuid.New(), uuid.New(), uuid.New(), tt.rating, tt.comment)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
