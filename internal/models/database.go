package models

// GORM models

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// StringArray for PostgreSQL text[] columns
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoutingRecord is one processed orchestrator query.
type RoutingRecord struct {
	BaseModel
	RequestID      string  `json:"request_id" gorm:"index"`
	QueryText      string  `json:"query_text" gorm:"not null"`
	Location       string  `json:"location"`
	Category       string  `json:"category" gorm:"not null;index"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	Forced         bool    `json:"forced"`
	ClassifiedBy   string  `json:"classified_by"`
	AgentUsed      string  `json:"agent_used"`
	Success        bool    `json:"success"`
	ResponseTimeMs int     `json:"response_time_ms"`
}

// PolicyDocument is a chunk of insurance policy text used for retrieval.
type PolicyDocument struct {
	BaseModel
	Title       string      `json:"title" gorm:"not null"`
	SourceURL   string      `json:"source_url"`
	ChunkIndex  int         `json:"chunk_index"`
	Content     string      `json:"content" gorm:"not null"`
	ContentHash string      `json:"content_hash" gorm:"uniqueIndex;not null"`
	Keywords    StringArray `json:"keywords" gorm:"type:text[]"`
	WordCount   int         `json:"word_count"`
	IsActive    bool        `json:"is_active" gorm:"default:true"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// CategoryCount is one row of the routing breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Database interfaces for repository pattern
type RoutingRecordRepository interface {
	Create(ctx context.Context, record *RoutingRecord) error
	GetRecent(limit int) ([]RoutingRecord, error)
	CountByCategory() ([]CategoryCount, error)
}

type PolicyDocumentRepository interface {
	Upsert(doc *PolicyDocument) error
	GetActive() ([]PolicyDocument, error)
	Deactivate(sourceURL string) error
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
}

func (RoutingRecord) TableName() string  { return "routing_records" }
func (PolicyDocument) TableName() string { return "policy_documents" }
func (SystemHealth) TableName() string   { return "system_health" }

var validCategories = map[string]bool{
	"health_doctor": true,
	"insurance":     true,
	"unknown":       true,
}

func (r *RoutingRecord) Validate() error {
	if r.QueryText == "" {
		return fmt.Errorf("query text is required")
	}
	if !validCategories[r.Category] {
		return fmt.Errorf("invalid category: %s", r.Category)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %v", r.Confidence)
	}
	if r.ResponseTimeMs < 0 {
		return fmt.Errorf("response time cannot be negative")
	}
	return nil
}

func (p *PolicyDocument) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("policy title is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("policy content is required")
	}
	if p.ContentHash == "" {
		return fmt.Errorf("content hash is required")
	}
	return nil
}

// GORM hooks
func (r *RoutingRecord) BeforeCreate(tx *gorm.DB) error {
	return r.Validate()
}

func (p *PolicyDocument) BeforeCreate(tx *gorm.DB) error {
	return p.Validate()
}

func (p *PolicyDocument) BeforeUpdate(tx *gorm.DB) error {
	return p.Validate()
}
