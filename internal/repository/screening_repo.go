package repository

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
)

// ScreeningFilter narrows screening queries.
type ScreeningFilter struct {
	Variants      []screening.Variant
	UserID        *uint
	CompletedOnly bool
	Page          int
	PageSize      int
}

// ScreeningRepository persists screening submissions across the variant tables.
type ScreeningRepository interface {
	Create(ctx context.Context, record models.ScreeningRecord) error
	SaveOutput(ctx context.Context, variant screening.Variant, id string, output datatypes.JSONMap) error
	GetByID(ctx context.Context, variant screening.Variant, id string) (models.ScreeningRecord, error)
	List(ctx context.Context, filter ScreeningFilter) ([]models.ScreeningRecord, int64, error)
}

type screeningRepository struct {
	db *gorm.DB
}

// NewScreeningRepository instantiates the repository.
func NewScreeningRepository(db *gorm.DB) ScreeningRepository {
	return &screeningRepository{db: db}
}

func (r *screeningRepository) Create(ctx context.Context, record models.ScreeningRecord) error {
	query := r.db.WithContext(ctx)
	// An absent output must stay SQL NULL; a nil JSONMap would be stored as 'null'.
	if !record.Base().IsCompleted() {
		query = query.Omit("model_output")
	}
	return query.Create(record).Error
}

// SaveOutput attaches the model output. It is the only update a record receives.
func (r *screeningRepository) SaveOutput(ctx context.Context, variant screening.Variant, id string, output datatypes.JSONMap) error {
	model := models.NewScreeningRecord(variant)
	if model == nil {
		return fmt.Errorf("unknown screening variant %q", variant)
	}

	result := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Update("model_output", output)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *screeningRepository) GetByID(ctx context.Context, variant screening.Variant, id string) (models.ScreeningRecord, error) {
	record := models.NewScreeningRecord(variant)
	if record == nil {
		return nil, gorm.ErrRecordNotFound
	}

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// List returns records newest first. When several variants are requested the
// tables are merged before paging.
func (r *screeningRepository) List(ctx context.Context, filter ScreeningFilter) ([]models.ScreeningRecord, int64, error) {
	variants := filter.Variants
	if len(variants) == 0 {
		variants = []screening.Variant{screening.VariantSimple, screening.VariantClinical, screening.VariantImage}
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := 0
	if filter.PageSize > 0 {
		offset = (page - 1) * filter.PageSize
	}

	var (
		records []models.ScreeningRecord
		total   int64
	)
	for _, variant := range variants {
		query, err := r.filtered(ctx, variant, filter)
		if err != nil {
			return nil, 0, err
		}

		var count int64
		if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
			return nil, 0, err
		}
		total += count

		query = query.Order("created_at DESC")
		if filter.PageSize > 0 {
			query = query.Limit(offset + filter.PageSize)
		}

		rows, err := findRecords(variant, query)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rows...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Base().CreatedAt.After(records[j].Base().CreatedAt)
	})

	if filter.PageSize > 0 {
		if offset >= len(records) {
			return []models.ScreeningRecord{}, total, nil
		}
		end := offset + filter.PageSize
		if end > len(records) {
			end = len(records)
		}
		records = records[offset:end]
	}

	return records, total, nil
}

func (r *screeningRepository) filtered(ctx context.Context, variant screening.Variant, filter ScreeningFilter) (*gorm.DB, error) {
	model := models.NewScreeningRecord(variant)
	if model == nil {
		return nil, fmt.Errorf("unknown screening variant %q", variant)
	}

	query := r.db.WithContext(ctx).Model(model)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.CompletedOnly {
		query = query.Where("model_output IS NOT NULL")
	}
	return query, nil
}

func findRecords(variant screening.Variant, query *gorm.DB) ([]models.ScreeningRecord, error) {
	switch variant {
	case screening.VariantSimple:
		return collect[models.SimpleScreening](query)
	case screening.VariantClinical:
		return collect[models.ClinicalScreening](query)
	default:
		return collect[models.ImageScreening](query)
	}
}

func collect[T any, P interface {
	*T
	models.ScreeningRecord
}](query *gorm.DB) ([]models.ScreeningRecord, error) {
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.ScreeningRecord, 0, len(rows))
	for i := range rows {
		records = append(records, P(&rows[i]))
	}
	return records, nil
}
