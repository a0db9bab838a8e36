package position

import (
	"context"
	"fmt"
	"time"

	"crypto-profile-trader/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// positionRecord 持仓的数据库映射
type positionRecord struct {
	Symbol     string `gorm:"primaryKey"`
	EntryPrice float64
	Quantity   float64
	EntryTime  time.Time
	UpdatedAt  time.Time
}

func (positionRecord) TableName() string {
	return "positions"
}

// GormStore 基于 Gorm + SQLite 实现 Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 打开 (必要时创建) SQLite 持仓库
func NewGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open position store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&positionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate position store: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, pos model.Position) error {
	rec := positionRecord{
		Symbol:     pos.Symbol,
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.Quantity,
		EntryTime:  pos.EntryTime,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (s *GormStore) Delete(ctx context.Context, symbol string) error {
	return s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Delete(&positionRecord{}).Error
}

func (s *GormStore) LoadAll(ctx context.Context) ([]model.Position, error) {
	var records []positionRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]model.Position, 0, len(records))
	for _, rec := range records {
		out = append(out, model.Position{
			Symbol:     rec.Symbol,
			Direction:  model.DirLong,
			EntryPrice: rec.EntryPrice,
			Quantity:   rec.Quantity,
			EntryTime:  rec.EntryTime,
		})
	}
	return out, nil
}
