package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/careroute/careroute/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRoutingRecordRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoutingRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "routing_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	record := &models.RoutingRecord{
		QueryText:  "find me a doctor",
		Category:   "health_doctor",
		Confidence: 0.8,
		AgentUsed:  "health_doctor",
		Success:    true,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, uint(7), record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutingRecordRepository_CreateRejectsInvalid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoutingRecordRepository(db)

	err := repo.Create(context.Background(), &models.RoutingRecord{QueryText: "q", Category: "billing"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutingRecordRepository_GetRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoutingRecordRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "query_text", "category", "confidence", "agent_used", "success"}).
		AddRow(2, now, now, "does my plan cover MRI", "insurance", 0.8, "insurance", true).
		AddRow(1, now, now, "need a doctor", "health_doctor", 0.8, "health_doctor", false)
	mock.ExpectQuery(`SELECT \* FROM "routing_records" ORDER BY created_at DESC LIMIT`).
		WillReturnRows(rows)

	records, err := repo.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "insurance", records[0].Category)
	assert.False(t, records[1].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutingRecordRepository_CountByCategory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoutingRecordRepository(db)

	mock.ExpectQuery(`SELECT category, count\(\*\) AS count FROM "routing_records" GROUP BY "category" ORDER BY count DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
			AddRow("health_doctor", 12).
			AddRow("insurance", 5))

	counts, err := repo.CountByCategory()
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryCount{{Category: "health_doctor", Count: 12}, {Category: "insurance", Count: 5}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPolicyDocumentRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPolicyDocumentRepository(db)

	mock.ExpectQuery(`INSERT INTO "policy_documents" .* ON CONFLICT \("content_hash"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	doc := &models.PolicyDocument{
		Title:       "Gold PPO",
		SourceURL:   "https://example.com/gold",
		Content:     "Outpatient MRI is covered after deductible.",
		ContentHash: "hash-1",
		Keywords:    models.StringArray{"mri", "deductible"},
		IsActive:    true,
	}
	require.NoError(t, repo.Upsert(doc))
	assert.Equal(t, uint(3), doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPolicyDocumentRepository_GetActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPolicyDocumentRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "policy_documents" WHERE is_active = \$1`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "content_hash", "keywords", "is_active"}).
			AddRow(1, "Gold PPO", "MRI covered", "h1", "{mri}", true))

	docs, err := repo.GetActive()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StringArray{"mri"}, docs[0].Keywords)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemHealthRepository_UpdateServiceHealth(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSystemHealthRepository(db)

	mock.ExpectExec(`INSERT INTO system_health`).
		WithArgs("health_agent", "unhealthy", 12, "connection refused").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdateServiceHealth("health_agent", "unhealthy", 12, "connection refused"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
