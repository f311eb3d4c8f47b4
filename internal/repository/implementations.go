// backend/internal/repository/implementations.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrQueryNotFound is returned when no search query has the requested id.
var ErrQueryNotFound = errors.New("search query not found")

// SearchQueryRepositoryImpl implements SearchQueryRepository
type SearchQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchQueryRepository(db *gorm.DB) models.SearchQueryRepository {
	return &SearchQueryRepositoryImpl{db: db}
}

// CreateWithResults writes the query row and then each result row, in order,
// inside one transaction. Nothing is kept if any insert fails.
func (r *SearchQueryRepositoryImpl) CreateWithResults(ctx context.Context, query *models.SearchQuery, results []models.SearchResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(query).Error; err != nil {
			return fmt.Errorf("failed to create search query: %w", err)
		}

		saved := make([]models.SearchResult, 0, len(results))
		for i := range results {
			result := results[i]
			result.ID = 0
			result.SearchQueryID = query.ID
			if err := tx.Create(&result).Error; err != nil {
				return fmt.Errorf("failed to create search result %d: %w", i, err)
			}
			saved = append(saved, result)
		}

		query.Results = saved
		return nil
	})
}

func (r *SearchQueryRepositoryImpl) GetByID(ctx context.Context, id uint) (*models.SearchQuery, error) {
	var query models.SearchQuery
	err := r.db.WithContext(ctx).
		Preload("Results", orderByID).
		First(&query, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQueryNotFound
	}
	if err != nil {
		return nil, err
	}
	normalize(&query)
	return &query, nil
}

// ListWithResults returns every query, newest first, with its results in
// creation order.
func (r *SearchQueryRepositoryImpl) ListWithResults(ctx context.Context) ([]models.SearchQuery, error) {
	var queries []models.SearchQuery
	err := r.db.WithContext(ctx).
		Preload("Results", orderByID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&queries).Error
	if err != nil {
		return nil, err
	}
	for i := range queries {
		normalize(&queries[i])
	}
	return queries, nil
}

func (r *SearchQueryRepositoryImpl) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SearchQuery{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SearchQueryRepositoryImpl) GetResults(ctx context.Context, queryID uint) ([]models.SearchResult, error) {
	exists, err := r.Exists(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrQueryNotFound
	}

	results := []models.SearchResult{}
	err = r.db.WithContext(ctx).
		Where("search_query_id = ?", queryID).
		Order("id ASC").
		Find(&results).Error
	return results, err
}

func (r *SearchQueryRepositoryImpl) Find(ctx context.Context, filter models.QueryFilter) ([]models.SearchQuery, error) {
	db := r.db.WithContext(ctx).Model(&models.SearchQuery{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		db = db.Where(`LOWER(query) LIKE ? ESCAPE '\'`, likePattern(search))
	}
	if filter.Since != nil {
		db = db.Where("created_at >= ?", *filter.Since)
	}

	queries := []models.SearchQuery{}
	err := db.Order("created_at DESC").Order("id DESC").Find(&queries).Error
	return queries, err
}

// Delete removes a query together with its results.
func (r *SearchQueryRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("search_query_id = ?", id).Delete(&models.SearchResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete search results: %w", err)
		}
		res := tx.Delete(&models.SearchQuery{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete search query: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrQueryNotFound
		}
		return nil
	})
}

// SearchResultRepositoryImpl implements SearchResultRepository
type SearchResultRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchResultRepository(db *gorm.DB) models.SearchResultRepository {
	return &SearchResultRepositoryImpl{db: db}
}

func (r *SearchResultRepositoryImpl) Find(ctx context.Context, filter models.ResultFilter) ([]models.SearchResult, error) {
	db := r.db.WithContext(ctx).Model(&models.SearchResult{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		db = db.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if filter.Rating != nil {
		db = db.Where("rating = ?", *filter.Rating)
	}

	results := []models.SearchResult{}
	err := db.Order("id ASC").Find(&results).Error
	return results, err
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func normalize(query *models.SearchQuery) {
	if query.Results == nil {
		query.Results = []models.SearchResult{}
	}
}

func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + replacer.Replace(strings.ToLower(search)) + "%"
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	SearchQuery  models.SearchQueryRepository
	SearchResult models.SearchResultRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		SearchQuery:  NewSearchQueryRepository(db),
		SearchResult: NewSearchResultRepository(db),
	}
}
