package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (s *Store) CreateProcessor(ctx context.Context, alphaName string) (*Processor, error) {
	p := &Processor{
		RunID:     uuid.NewString(),
		AlphaName: alphaName,
		Status:    ProcessorPending,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}
	return p, nil
}

// PendingProcessors returns runs that have not reached a terminal status, oldest first.
func (s *Store) PendingProcessors(ctx context.Context, limit int) ([]Processor, error) {
	var ps []Processor
	q := s.db.WithContext(ctx).
		Where("status NOT IN ?", []string{ProcessorPublished, ProcessorFailed}).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&ps).Error
	return ps, err
}

// UpdateProcessor saves every field of p.
func (s *Store) UpdateProcessor(ctx context.Context, p *Processor) error {
	return s.db.WithContext(ctx).Save(p).Error
}

// LatestPublished returns the most recently published run.
func (s *Store) LatestPublished(ctx context.Context) (*Processor, error) {
	var p Processor
	err := s.db.WithContext(ctx).
		Where("status = ?", ProcessorPublished).
		Order("updated_at DESC").
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
