package services

import (
	"fmt"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/Ayash-Bera/placefinder/backend/internal/placesapi"
)

// EnrichResults annotates each place with a quality label and an approximate
// distance. Order and all original fields are preserved.
func EnrichResults(places []placesapi.PlaceResult) []models.EnrichedPlace {
	enriched := make([]models.EnrichedPlace, 0, len(places))
	for i, place := range places {
		item := models.EnrichedPlace{PlaceResult: place}
		if place.Rating != nil {
			label := qualityLabel(*place.Rating)
			item.Quality = &label
		}
		if place.Location != nil {
			item.DistanceInfo = &models.DistanceInfo{
				// Placeholder until real distances are computed.
				FromCenter: fmt.Sprintf("%d meters approx.", i*100+50),
			}
		}
		enriched = append(enriched, item)
	}
	return enriched
}

// qualityLabel converts numeric rating to a text label
func qualityLabel(rating float64) string {
	switch {
	case rating >= 4.5:
		return "excellent"
	case rating >= 4.0:
		return "very good"
	case rating >= 3.5:
		return "good"
	case rating >= 3.0:
		return "average"
	default:
		return "below average"
	}
}

// toSearchResult maps an enriched place onto its stored row.
func toSearchResult(place models.EnrichedPlace) models.SearchResult {
	result := models.SearchResult{
		PlaceID:          place.PlaceID,
		Name:             place.Name,
		Address:          place.Address,
		Rating:           place.Rating,
		UserRatingsTotal: place.UserRatingsTotal,
		Types:            models.StringArray(place.Types),
		CustomData: models.CustomData{
			Quality:      place.Quality,
			DistanceInfo: place.DistanceInfo,
		},
	}
	if place.Location != nil {
		result.Latitude = place.Location.Lat
		result.Longitude = place.Location.Lng
	}
	if result.Types == nil {
		result.Types = models.StringArray{}
	}
	return result
}
