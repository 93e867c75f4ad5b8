package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/complaint-desk-api/internal/models"
)

// CategoryRepository provides database access for complaint categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return &category, nil
}

// Create inserts a new category. Names are unique; a collision surfaces as
// ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `INSERT INTO categories (id, name, description, created_at, updated_at) VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update modifies a category's name and description.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a category. Complaints referencing it keep their rows with
// category_id set to NULL by the foreign key's ON DELETE SET NULL.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
