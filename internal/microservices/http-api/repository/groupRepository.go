package repository

import (
	"context"
	"fmt"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type GroupRepository interface {
	List(ctx context.Context) ([]models.Group, error)
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	FindByNames(ctx context.Context, names []string) ([]models.Group, error)
	Create(ctx context.Context, g *models.Group) error
	Update(ctx context.Context, g *models.Group) error
	Delete(ctx context.Context, id int64) error
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) List(ctx context.Context) ([]models.Group, error) {
	var list []models.Group
	if err := r.db.WithContext(ctx).Preload("Permissions").Order("name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return list, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&g, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (r *groupRepository) FindByNames(ctx context.Context, names []string) ([]models.Group, error) {
	if len(names) == 0 {
		return []models.Group{}, nil
	}
	var list []models.Group
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("find groups: %w", err)
	}
	return list, nil
}

func (r *groupRepository) checkName(tx *gorm.DB, name string, exceptID int64) error {
	var n int64
	q := tx.Model(&models.Group{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check group name: %w", err)
	}
	if n > 0 {
		return &DuplicateKeyError{Entity: "group", Field: "name", Value: name}
	}
	return nil
}

func (r *groupRepository) Create(ctx context.Context, g *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkName(tx, g.Name, 0); err != nil {
			return err
		}
		if err := tx.Create(g).Error; err != nil {
			if isUniqueViolation(err) {
				return &DuplicateKeyError{Entity: "group", Field: "name", Value: g.Name}
			}
			return fmt.Errorf("create group: %w", err)
		}
		return nil
	})
}

// Update renames the group and replaces its permission set.
func (r *groupRepository) Update(ctx context.Context, g *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Group{}, g.ID).Error; err != nil {
			return notFound(err)
		}
		if err := r.checkName(tx, g.Name, g.ID); err != nil {
			return err
		}
		if err := tx.Model(&models.Group{ID: g.ID}).Update("name", g.Name).Error; err != nil {
			return fmt.Errorf("update group: %w", err)
		}
		perms := g.Permissions
		if perms == nil {
			perms = []models.Permission{}
		}
		if err := tx.Model(&models.Group{ID: g.ID}).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("replace group permissions: %w", err)
		}
		return nil
	})
}

func (r *groupRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g := models.Group{ID: id}
		if err := tx.First(&g, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Exec("DELETE FROM user_groups WHERE group_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink group members: %w", err)
		}
		if err := tx.Model(&g).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("clear group permissions: %w", err)
		}
		if err := tx.Delete(&models.Group{}, id).Error; err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		return nil
	})
}
