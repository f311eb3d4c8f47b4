package models

// GORM models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrImmutable is returned by the update hooks: persisted searches are never
// modified in place.
var ErrImmutable = errors.New("search records are immutable")

// StringArray is an ordered list of strings stored as a JSON array.
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return s.Scan([]byte(v))
	case []byte:
		if len(v) == 0 {
			*s = StringArray{}
			return nil
		}
		var items []string
		if err := json.Unmarshal(v, &items); err != nil {
			return fmt.Errorf("cannot scan %q into StringArray: %w", v, err)
		}
		if items == nil {
			items = []string{}
		}
		*s = StringArray(items)
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

func (s StringArray) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return jsonColumnType(db)
}

// DistanceInfo is the approximate distance annotation attached to a result.
type DistanceInfo struct {
	FromCenter string `json:"from_center"`
}

// CustomData holds the annotations derived for a result. Both keys are always
// present in the stored JSON; either may be null.
type CustomData struct {
	Quality      *string       `json:"quality"`
	DistanceInfo *DistanceInfo `json:"distance_info"`
}

func (c CustomData) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *CustomData) Scan(value interface{}) error {
	*c = CustomData{}

	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return c.Scan([]byte(v))
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, c)
	default:
		return fmt.Errorf("cannot scan %T into CustomData", value)
	}
}

func (CustomData) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return jsonColumnType(db)
}

func jsonColumnType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

// SearchQuery is one recorded search request. It owns its results.
type SearchQuery struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Query     string    `json:"query" gorm:"size:255;not null"`
	Latitude  float64   `json:"latitude" gorm:"not null"`
	Longitude float64   `json:"longitude" gorm:"not null"`
	Radius    int       `json:"radius" gorm:"not null;default:1000"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Associations
	Results []SearchResult `json:"results" gorm:"foreignKey:SearchQueryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// SearchResult is a single place returned for a SearchQuery.
type SearchResult struct {
	ID               uint        `json:"id" gorm:"primaryKey"`
	SearchQueryID    uint        `json:"-" gorm:"not null;index"`
	PlaceID          string      `json:"place_id" gorm:"size:255"`
	Name             string      `json:"name" gorm:"size:255"`
	Address          *string     `json:"address" gorm:"size:512"`
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Rating           *float64    `json:"rating"`
	UserRatingsTotal *int        `json:"user_ratings_total"`
	Types            StringArray `json:"types"`
	CustomData       CustomData  `json:"custom_data"`
}

// TableName methods for custom table names
func (SearchQuery) TableName() string  { return "search_queries" }
func (SearchResult) TableName() string { return "search_results" }

func (sq SearchQuery) String() string {
	return fmt.Sprintf("%s at (%v, %v)", sq.Query, sq.Latitude, sq.Longitude)
}

func (sr SearchResult) String() string {
	return sr.Name
}

// Filters used by the administrative listings.
type QueryFilter struct {
	// Search matches queries whose text contains it, case-insensitively.
	Search string
	Since  *time.Time
}

type ResultFilter struct {
	// Search matches name or address, case-insensitively.
	Search string
	Rating *float64
}

// Database interfaces for repository pattern
type SearchQueryRepository interface {
	CreateWithResults(ctx context.Context, query *SearchQuery, results []SearchResult) error
	GetByID(ctx context.Context, id uint) (*SearchQuery, error)
	ListWithResults(ctx context.Context) ([]SearchQuery, error)
	Exists(ctx context.Context, id uint) (bool, error)
	GetResults(ctx context.Context, queryID uint) ([]SearchResult, error)
	Find(ctx context.Context, filter QueryFilter) ([]SearchQuery, error)
	Delete(ctx context.Context, id uint) error
}

type SearchResultRepository interface {
	Find(ctx context.Context, filter ResultFilter) ([]SearchResult, error)
}

// Model validation methods
func (sq *SearchQuery) Validate() error {
	if strings.TrimSpace(sq.Query) == "" {
		return fmt.Errorf("query text is required")
	}
	return nil
}

func (sr *SearchResult) Validate() error {
	if sr.SearchQueryID == 0 {
		return fmt.Errorf("search result must belong to a search query")
	}
	return nil
}

// GORM hooks
func (sq *SearchQuery) BeforeCreate(tx *gorm.DB) error {
	return sq.Validate()
}

func (sq *SearchQuery) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

func (sr *SearchResult) BeforeCreate(tx *gorm.DB) error {
	return sr.Validate()
}

func (sr *SearchResult) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}
