package placesapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Request models
type NearbySearchRequest struct {
	Query     string  `json:"query"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius"`
}

// Response models
type NearbySearchResponse struct {
	Results []PlaceResult `json:"results"`
	// Extra holds every top-level key other than results, as received.
	Extra map[string]json.RawMessage `json:"-"`
}

func (r *NearbySearchResponse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.Results = nil
	r.Extra = nil
	if results, ok := fields["results"]; ok {
		delete(fields, "results")
		if !isNull(results) {
			if err := json.Unmarshal(results, &r.Results); err != nil {
				return fmt.Errorf("results: %w", err)
			}
		}
	}
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

// PlaceResult is the typed view of one result used for enrichment and
// storage. Raw keeps the object exactly as the API sent it.
type PlaceResult struct {
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	Address          *string   `json:"address,omitempty"`
	Location         *Location `json:"location,omitempty"`
	Rating           *float64  `json:"rating,omitempty"`
	UserRatingsTotal *int      `json:"user_ratings_total,omitempty"`
	Types            []string  `json:"types,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (p *PlaceResult) UnmarshalJSON(data []byte) error {
	var fields struct {
		PlaceID          string       `json:"place_id"`
		Name             string       `json:"name"`
		Address          *string      `json:"address"`
		Location         *Location    `json:"location"`
		Rating           *float64     `json:"rating"`
		UserRatingsTotal *json.Number `json:"user_ratings_total"`
		Types            []string     `json:"types"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*p = PlaceResult{
		PlaceID:  fields.PlaceID,
		Name:     fields.Name,
		Address:  fields.Address,
		Location: fields.Location,
		Rating:   fields.Rating,
		Types:    fields.Types,
		Raw:      append(json.RawMessage(nil), data...),
	}
	if fields.UserRatingsTotal != nil {
		total, err := wholeNumber(*fields.UserRatingsTotal)
		if err != nil {
			return fmt.Errorf("user_ratings_total: %w", err)
		}
		p.UserRatingsTotal = &total
	}
	return nil
}

// wholeNumber accepts 12 and 12.0 alike; a fractional part is dropped.
func wholeNumber(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	f = math.Trunc(f)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s is out of range", n)
	}
	return int(f), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
