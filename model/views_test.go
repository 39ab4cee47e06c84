package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstitutionView_MissingCompanionsAreNull(t *testing.T) {
	view := NewInstitutionView(Institution{ID: 7, Name: "Colorado School of Mines", State: "CO"})

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "Colorado School of Mines", decoded["name"])
	for _, key := range []string{"offers_bachelors", "offers_masters", "highest_degree", "is_hbcu", "control_type"} {
		v, ok := decoded[key]
		assert.True(t, ok, "%s should be present", key)
		assert.Nil(t, v, "%s should be null when the companion row is absent", key)
	}
}

func TestNewInstitutionView_FalseIsNotUnknown(t *testing.T) {
	view := NewInstitutionView(Institution{
		ID:             1,
		Name:           "Acme University",
		DegreeOffering: &DegreeOffering{OffersBachelors: true, OffersMasters: false},
		Identity:       &InstitutionIdentity{ControlType: "Public"},
	})

	require.NotNil(t, view.OffersBachelors)
	require.NotNil(t, view.OffersMasters)
	assert.True(t, *view.OffersBachelors)
	assert.False(t, *view.OffersMasters)
	require.NotNil(t, view.ControlType)
	assert.Equal(t, "Public", *view.ControlType)
	require.NotNil(t, view.IsTribal)
	assert.False(t, *view.IsTribal)
}

func TestSwipeDirection_IsValid(t *testing.T) {
	assert.True(t, SwipeLeft.IsValid())
	assert.True(t, SwipeRight.IsValid())
	assert.False(t, SwipeDirection("up").IsValid())
	assert.False(t, SwipeDirection("").IsValid())
}
