package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medmanage/internal/domain"
	"medmanage/internal/logger"
	"medmanage/internal/repository"
)

// ReferenceMedicines is the starter catalog.
func ReferenceMedicines() []domain.Medicine {
	return []domain.Medicine{
		{
			Name:         "Paracetamol",
			Batch:        "BATCH001",
			Manufacturer: "ABC Pharma",
			Expiry:       time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
			Stock:        100,
			Price:        10.00,
		},
		{
			Name:         "Ibuprofen",
			Batch:        "BATCH002",
			Manufacturer: "XYZ Pharma",
			Expiry:       time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC),
			Stock:        75,
			Price:        15.50,
		},
	}
}

// LoadMedicines clears the catalog and inserts medicines, returning the resulting count.
func LoadMedicines(ctx context.Context, repo repository.MedicineRepository, medicines []domain.Medicine) (int64, error) {
	log := logger.FromContext(ctx)

	if err := repo.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("clear medicines: %w", err)
	}
	for _, m := range medicines {
		m := m
		if err := repo.Insert(ctx, &m); err != nil {
			return 0, fmt.Errorf("insert medicine %s: %w", m.Name, err)
		}
	}
	log.Info("medicines inserted successfully")

	count, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count medicines: %w", err)
	}
	log.Info("seeded medicine catalog", zap.Int64("total", count))
	return count, nil
}
