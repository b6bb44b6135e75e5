package service

import (
	"fmt"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

// custodyTransitions enumerates the legal status moves of an asset. Anything
// not listed is rejected, WRITTEN_OFF in particular accepts no exit.
var custodyTransitions = map[models.AssetStatus][]models.AssetStatus{
	models.AssetAvailable:   {models.AssetInUse, models.AssetMaintenance, models.AssetStored, models.AssetWrittenOff},
	models.AssetInUse:       {models.AssetAvailable, models.AssetMaintenance, models.AssetInUse, models.AssetWrittenOff},
	models.AssetMaintenance: {models.AssetAvailable, models.AssetInUse, models.AssetStored, models.AssetWrittenOff},
	models.AssetStored:      {models.AssetAvailable, models.AssetInUse, models.AssetMaintenance, models.AssetWrittenOff},
}

// canTransition reports whether an asset may move between two statuses.
// IN_USE to IN_USE is legal: a delivered transfer rebinds the holder.
func canTransition(from, to models.AssetStatus) bool {
	for _, allowed := range custodyTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// guardTransition returns a typed conflict error when the move is illegal.
func guardTransition(from, to models.AssetStatus) error {
	if canTransition(from, to) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrInvalidState,
		fmt.Sprintf("asset cannot move from %s to %s", from, to))
}
