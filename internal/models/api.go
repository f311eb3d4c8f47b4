package models

import (
	"encoding/json"

	"github.com/Ayash-Bera/placefinder/backend/internal/placesapi"
)

const (
	DefaultRadius = 1000
	MaxRadius     = 50000
)

// SearchParams is a validated nearby-search request.
type SearchParams struct {
	Query     string  `json:"query"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius"`
}

// EnrichedPlace is a places API result plus the derived annotations. It
// serializes as the result object the API sent, with the annotations merged
// in.
type EnrichedPlace struct {
	placesapi.PlaceResult
	Quality      *string       `json:"quality,omitempty"`
	DistanceInfo *DistanceInfo `json:"distance_info,omitempty"`
}

func (p EnrichedPlace) MarshalJSON() ([]byte, error) {
	source := []byte(p.Raw)
	if len(source) == 0 {
		typed, err := json.Marshal(p.PlaceResult)
		if err != nil {
			return nil, err
		}
		source = typed
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(source, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	if p.Quality != nil {
		quality, err := json.Marshal(*p.Quality)
		if err != nil {
			return nil, err
		}
		fields["quality"] = quality
	}
	if p.DistanceInfo != nil {
		distance, err := json.Marshal(p.DistanceInfo)
		if err != nil {
			return nil, err
		}
		fields["distance_info"] = distance
	}
	return json.Marshal(fields)
}

// SearchResponse is the body of a successful search: the upstream payload
// with its results replaced by the enriched ones.
type SearchResponse struct {
	Results []EnrichedPlace `json:"results"`
	// Extra carries the other top-level keys of the upstream payload.
	Extra map[string]json.RawMessage `json:"-"`
}

func (r SearchResponse) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Extra)+1)
	for key, value := range r.Extra {
		body[key] = value
	}

	results := r.Results
	if results == nil {
		results = []EnrichedPlace{}
	}
	body["results"] = results
	return json.Marshal(body)
}
