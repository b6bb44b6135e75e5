package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

func TestCustodyTransitions(t *testing.T) {
	cases := []struct {
		name string
		from models.AssetStatus
		to   models.AssetStatus
		ok   bool
	}{
		{"available to in use", models.AssetAvailable, models.AssetInUse, true},
		{"in use back to available", models.AssetInUse, models.AssetAvailable, true},
		{"transfer rebinds holder", models.AssetInUse, models.AssetInUse, true},
		{"stored to maintenance", models.AssetStored, models.AssetMaintenance, true},
		{"write off from anywhere", models.AssetMaintenance, models.AssetWrittenOff, true},
		{"written off is terminal", models.AssetWrittenOff, models.AssetAvailable, false},
		{"written off stays written off", models.AssetWrittenOff, models.AssetInUse, false},
		{"available cannot repeat", models.AssetAvailable, models.AssetAvailable, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.ok, canTransition(tc.from, tc.to))
		})
	}
}

func TestGuardTransitionReturnsConflict(t *testing.T) {
	err := guardTransition(models.AssetWrittenOff, models.AssetAvailable)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)

	require.NoError(t, guardTransition(models.AssetAvailable, models.AssetStored))
}
