// Package mysql 从 MySQL 历史报价表加载报价快照
package mysql

import (
	"context"
	"fmt"

	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"gorm.io/gorm"
)

const batchSize = 5000

// QuoteSource 基于 GORM 的报价来源
type QuoteSource struct {
	db *gorm.DB
}

// NewQuoteSource 创建 MySQL 报价来源
func NewQuoteSource(db *gorm.DB) *QuoteSource {
	return &QuoteSource{db: db}
}

// Describe 返回来源描述
func (s *QuoteSource) Describe() string {
	return "mysql:" + QuotePO{}.TableName()
}

// Load 按主键顺序分批读取整张表
func (s *QuoteSource) Load(ctx context.Context) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0)
	var batch []QuotePO

	result := s.db.WithContext(ctx).Order("id ASC").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			q := batch[i].ToDomain()
			if err := q.Validate(); err != nil {
				return fmt.Errorf("quote id %d: %w", batch[i].ID, err)
			}
			quotes = append(quotes, q)
		}
		return nil
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", result.Error)
	}
	return quotes, nil
}

// Migrate 创建或更新报价表结构
func (s *QuoteSource) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&QuotePO{})
}

// Import 批量写入报价，用于把 CSV 导入数据库
func (s *QuoteSource) Import(ctx context.Context, quotes []domain.Quote) error {
	pos := make([]QuotePO, len(quotes))
	for i := range quotes {
		pos[i].FromDomain(quotes[i])
	}
	if err := s.db.WithContext(ctx).CreateInBatches(pos, batchSize).Error; err != nil {
		return fmt.Errorf("failed to import quotes: %w", err)
	}
	return nil
}
