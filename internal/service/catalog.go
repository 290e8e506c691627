package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
)

// CatalogService serves the read-mostly tag and ingredient catalogs.
type CatalogService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogService(db *gorm.DB, log *logger.Logger) *CatalogService {
	return &CatalogService{db: db, log: log}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// ListIngredients returns the catalog, optionally narrowed to names starting
// with the given prefix (case-insensitive).
func (s *CatalogService) ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Model(&models.Ingredient{}).Order("name")
	if namePrefix != "" {
		query = query.Where("LOWER(name) LIKE ?", strings.ToLower(namePrefix)+"%")
	}
	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ingredient, nil
}

// ImportIngredientsCSV loads "name,measurement_unit" rows, skipping pairs
// that already exist. Returns how many rows were inserted.
func (s *CatalogService) ImportIngredientsCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	imported := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, err
		}

		name := strings.TrimSpace(record[0])
		unit := strings.TrimSpace(record[1])
		if name == "" || unit == "" {
			s.log.Warn("skipping ingredient row with empty fields", "record", record)
			continue
		}

		ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
		res := s.db.WithContext(ctx).
			Where("name = ? AND measurement_unit = ?", name, unit).
			FirstOrCreate(&ingredient)
		if res.Error != nil {
			return imported, res.Error
		}
		if res.RowsAffected > 0 {
			imported++
		}
	}
	return imported, nil
}
