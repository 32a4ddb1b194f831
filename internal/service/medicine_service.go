package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medmanage/internal/domain"
	"medmanage/internal/repository"
)

// MedicineService exposes the medicine catalog operations.
type MedicineService struct {
	repo repository.MedicineRepository
}

func NewMedicineService(repo repository.MedicineRepository) *MedicineService {
	return &MedicineService{repo: repo}
}

func (s *MedicineService) List(ctx context.Context, f repository.MedicineFilter) ([]domain.Medicine, error) {
	return s.repo.List(ctx, f)
}

func (s *MedicineService) GetByID(ctx context.Context, id string) (*domain.Medicine, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, oid)
}

// Create persists a new medicine. Field rules are enforced by the repository's schema.
func (s *MedicineService) Create(ctx context.Context, m domain.Medicine) (*domain.Medicine, error) {
	cp := m
	cp.ID = primitive.NilObjectID
	if err := s.repo.Insert(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *MedicineService) Update(ctx context.Context, id string, patch domain.MedicinePatch) (*domain.Medicine, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, oid, patch)
}

func (s *MedicineService) Delete(ctx context.Context, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, oid)
}
