package repository

import (
	"context"
	"fmt"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type PermissionRepository interface {
	FindByCodenames(ctx context.Context, codenames []string) ([]models.Permission, error)
	List(ctx context.Context) ([]models.Permission, error)
	EnsureDefaults(ctx context.Context) error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) FindByCodenames(ctx context.Context, codenames []string) ([]models.Permission, error) {
	if len(codenames) == 0 {
		return []models.Permission{}, nil
	}
	var list []models.Permission
	if err := r.db.WithContext(ctx).Where("codename IN ?", codenames).Order("codename asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	return list, nil
}

func (r *permissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	var list []models.Permission
	if err := r.db.WithContext(ctx).Order("codename asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return list, nil
}

// EnsureDefaults creates every models.DefaultPermissions entry that is missing.
func (r *permissionRepository) EnsureDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	for _, p := range models.DefaultPermissions {
		perm := p
		if err := db.Where(models.Permission{Codename: perm.Codename}).
			Attrs(models.Permission{Name: perm.Name}).
			FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", perm.Codename, err)
		}
	}
	return nil
}
