// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"card-registration-kit/internal/domain"
)

// PreregistrationModel はgorm用のモデル定義。カード情報の列は持たない。
type PreregistrationModel struct {
	ID                  string    `gorm:"type:varchar(36);primaryKey"`
	PreregistrationData string    `gorm:"type:varchar(128);not null;uniqueIndex:uk_preregistration_data"`
	AccessKey           string    `gorm:"type:varchar(128);not null"`
	Status              string    `gorm:"type:varchar(16);not null;default:'CREATED'"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName はテーブル名を返す。
func (PreregistrationModel) TableName() string {
	return "card_preregistrations"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *PreregistrationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *PreregistrationModel) toDomain() *domain.Preregistration {
	return &domain.Preregistration{
		ID:                  m.ID,
		PreregistrationData: m.PreregistrationData,
		AccessKey:           m.AccessKey,
		Status:              domain.PreregistrationStatus(m.Status),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// PreregistrationRepository は事前登録の永続化を提供する。
type PreregistrationRepository struct {
	db *gorm.DB
}

// NewPreregistrationRepository は新しいPreregistrationRepositoryを生成する。
func NewPreregistrationRepository(db *gorm.DB) *PreregistrationRepository {
	return &PreregistrationRepository{db: db}
}

// Create は事前登録を保存する。IDが空の場合は生成される。
func (r *PreregistrationRepository) Create(ctx context.Context, p *domain.Preregistration) error {
	model := &PreregistrationModel{
		ID:                  p.ID,
		PreregistrationData: p.PreregistrationData,
		AccessKey:           p.AccessKey,
		Status:              string(p.Status),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create preregistration",
			"operation", "create",
			"registration_id", p.ID,
			"error", err,
		)
		return err
	}
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID はIDで事前登録を取得する。存在しない場合はnilを返す。
func (r *PreregistrationRepository) FindByID(ctx context.Context, id string) (*domain.Preregistration, error) {
	return r.findOne(ctx, "find_by_id", "id = ?", id)
}

// FindByPreregistrationData は事前登録データで事前登録を取得する。存在しない場合はnilを返す。
func (r *PreregistrationRepository) FindByPreregistrationData(ctx context.Context, data string) (*domain.Preregistration, error) {
	return r.findOne(ctx, "find_by_preregistration_data", "preregistration_data = ?", data)
}

func (r *PreregistrationRepository) findOne(ctx context.Context, operation, query string, arg any) (*domain.Preregistration, error) {
	var model PreregistrationModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find preregistration",
			"operation", operation,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// MarkTokenized は未使用の事前登録をトークン化済みにする。
// 既にトークン化済みの場合はfalseを返す。
func (r *PreregistrationRepository) MarkTokenized(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&PreregistrationModel{}).
		Where("id = ? AND status = ?", id, string(domain.PreregistrationStatusCreated)).
		Update("status", string(domain.PreregistrationStatusTokenized))
	if result.Error != nil {
		slog.ErrorContext(ctx, "failed to mark preregistration tokenized",
			"operation", "mark_tokenized",
			"registration_id", id,
			"error", result.Error,
		)
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
