package cache

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry 是 cache_entries 表的 GORM 模型（key -> JSON 字符串）。
type Entry struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:longtext;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Entry) TableName() string { return "cache_entries" }

// GormKV 基于 GORM/MySQL 的持久化缓存实现。
type GormKV struct {
	db *gorm.DB
}

func NewGormKV(db *gorm.DB) *GormKV {
	return &GormKV{db: db}
}

// AutoMigrate 建表（幂等）。
func (g *GormKV) AutoMigrate() error {
	if g == nil || g.db == nil {
		return fmt.Errorf("cache db is nil")
	}
	return g.db.AutoMigrate(&Entry{})
}

func (g *GormKV) Get(ctx context.Context, key string) (string, bool, error) {
	if g == nil || g.db == nil {
		return "", false, fmt.Errorf("cache db is nil")
	}
	var e Entry
	err := g.db.WithContext(ctx).Where("`key` = ?", key).First(&e).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (g *GormKV) Set(ctx context.Context, key, value string) error {
	if g == nil || g.db == nil {
		return fmt.Errorf("cache db is nil")
	}
	e := Entry{Key: key, Value: value}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (g *GormKV) Delete(ctx context.Context, key string) error {
	if g == nil || g.db == nil {
		return fmt.Errorf("cache db is nil")
	}
	return g.db.WithContext(ctx).Where("`key` = ?", key).Delete(&Entry{}).Error
}
