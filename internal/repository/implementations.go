package repository

import (
	"context"

	"github.com/careroute/careroute/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoutingRecordRepositoryImpl implements RoutingRecordRepository
type RoutingRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewRoutingRecordRepository(db *gorm.DB) models.RoutingRecordRepository {
	return &RoutingRecordRepositoryImpl{db: db}
}

func (r *RoutingRecordRepositoryImpl) Create(ctx context.Context, record *models.RoutingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *RoutingRecordRepositoryImpl) GetRecent(limit int) ([]models.RoutingRecord, error) {
	var records []models.RoutingRecord
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *RoutingRecordRepositoryImpl) CountByCategory() ([]models.CategoryCount, error) {
	var counts []models.CategoryCount
	err := r.db.Model(&models.RoutingRecord{}).
		Select("category, count(*) AS count").
		Group("category").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}

// PolicyDocumentRepositoryImpl implements PolicyDocumentRepository
type PolicyDocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewPolicyDocumentRepository(db *gorm.DB) models.PolicyDocumentRepository {
	return &PolicyDocumentRepositoryImpl{db: db}
}

// Upsert inserts the chunk or refreshes the existing row with the same hash.
func (r *PolicyDocumentRepositoryImpl) Upsert(doc *models.PolicyDocument) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "source_url", "chunk_index", "keywords", "is_active", "updated_at"}),
	}).Create(doc).Error
}

func (r *PolicyDocumentRepositoryImpl) GetActive() ([]models.PolicyDocument, error) {
	var docs []models.PolicyDocument
	err := r.db.Where("is_active = ?", true).
		Order("source_url, chunk_index").
		Find(&docs).Error
	return docs, err
}

func (r *PolicyDocumentRepositoryImpl) Deactivate(sourceURL string) error {
	return r.db.Model(&models.PolicyDocument{}).
		Where("source_url = ?", sourceURL).
		Update("is_active", false).Error
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		First(&health).Error
	if err != nil {
		return nil, err
	}
	return &health, nil
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	RoutingRecord  models.RoutingRecordRepository
	PolicyDocument models.PolicyDocumentRepository
	SystemHealth   models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		RoutingRecord:  NewRoutingRecordRepository(db),
		PolicyDocument: NewPolicyDocumentRepository(db),
		SystemHealth:   NewSystemHealthRepository(db),
	}
}
