package store

import (
	"fmt"
	"time"

	"github.com/examinaite/examinaite/internal/model"
)

// ExportAllGenerations builds an export of every stored generation.
func (s *Store) ExportAllGenerations() (model.GenerationExport, error) {
	records, err := s.ListGenerations("")
	if err != nil {
		return model.GenerationExport{}, fmt.Errorf("list generations: %w", err)
	}
	info, err := s.GetServiceInfo()
	if err != nil {
		return model.GenerationExport{}, fmt.Errorf("get service info: %w", err)
	}
	if records == nil {
		records = []model.GenerationRecord{}
	}
	return model.GenerationExport{
		ExportedAt:  time.Now().UTC(),
		Service:     info,
		Count:       len(records),
		Generations: records,
	}, nil
}
