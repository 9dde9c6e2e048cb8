package db

import (
	"borrow_analytics/models"
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const saveBatchSize = 500

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// SaveRecords 按 fingerprint upsert；同一指纹的新版本整行覆盖旧版本
func (r *Repo) SaveRecords(ctx context.Context, recs []models.BorrowRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			UpdateAll: true,
		}).CreateInBatches(recs, saveBatchSize).Error
		if err != nil {
			return fmt.Errorf("upsert borrow records: %w", err)
		}
		return nil
	})
}

func (r *Repo) LoadRecords(ctx context.Context) ([]models.BorrowRecord, error) {
	var recs []models.BorrowRecord
	if err := r.DB.WithContext(ctx).
		Order("checkout_at, fingerprint").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load borrow records: %w", err)
	}
	return recs, nil
}

// OpenRecords 列出仍未归还的记录（走部分索引）
func (r *Repo) OpenRecords(ctx context.Context, itemCode string) ([]models.BorrowRecord, error) {
	tx := r.DB.WithContext(ctx).Where("checkin_at IS NULL")
	if itemCode != "" {
		tx = tx.Where("item_code = ?", itemCode)
	}
	var recs []models.BorrowRecord
	if err := tx.Order("item_code, checkout_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.BorrowRecord{}).Count(&n).Error
	return n, err
}
