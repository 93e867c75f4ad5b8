package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/complaint-desk-api/internal/dto"
	"github.com/campushub/complaint-desk-api/internal/models"
)

// StatsRepository aggregates complaint metrics for the dashboard. Every
// query takes the same visibility scope the listing endpoints use, so a
// student only ever counts their own complaints and a faculty member their
// assigned ones.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new instance of StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func scopeClause(filter models.ComplaintFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.AssigneeID != "" {
		conditions = append(conditions, fmt.Sprintf("c.assigned_to_id = $%d", len(args)+1))
		args = append(args, filter.AssigneeID)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

// StatusCounts returns complaint counts per lifecycle state within scope.
func (r *StatsRepository) StatusCounts(ctx context.Context, filter models.ComplaintFilter) (*dto.StatusCounts, error) {
	scope, args := scopeClause(filter)
	query := `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE c.status = 'PENDING') AS pending,
	COUNT(*) FILTER (WHERE c.status = 'IN_PROGRESS') AS in_progress,
	COUNT(*) FILTER (WHERE c.status = 'RESOLVED') AS resolved,
	COUNT(*) FILTER (WHERE c.status = 'CLOSED') AS closed,
	COUNT(*) FILTER (WHERE c.priority = 'HIGH') AS high_priority
FROM complaints c WHERE 1=1` + scope
	var counts dto.StatusCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	return &counts, nil
}

// AvgResolutionHours returns the mean hours from creation to first
// resolution over resolved complaints within scope. Nil when no complaint
// in scope has been resolved yet.
func (r *StatsRepository) AvgResolutionHours(ctx context.Context, filter models.ComplaintFilter) (*float64, error) {
	scope, args := scopeClause(filter)
	query := `SELECT AVG(EXTRACT(EPOCH FROM (c.resolved_at - c.created_at)) / 3600.0)
FROM complaints c WHERE c.resolved_at IS NOT NULL` + scope
	var avg *float64
	if err := r.db.GetContext(ctx, &avg, query, args...); err != nil {
		return nil, fmt.Errorf("avg resolution hours: %w", err)
	}
	return avg, nil
}

// CountByCategory returns per-category complaint counts within scope.
// Complaints without a category fall into the "Uncategorized" bucket.
func (r *StatsRepository) CountByCategory(ctx context.Context, filter models.ComplaintFilter) ([]dto.CategoryCount, error) {
	scope, args := scopeClause(filter)
	query := `SELECT COALESCE(cat.name, 'Uncategorized') AS name, COUNT(*) AS count
FROM complaints c
LEFT JOIN categories cat ON cat.id = c.category_id
WHERE 1=1` + scope + `
GROUP BY COALESCE(cat.name, 'Uncategorized')
ORDER BY count DESC`
	var counts []dto.CategoryCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	return counts, nil
}

// CountByMonth returns complaint counts per creation month within scope for
// the trailing twelve months.
func (r *StatsRepository) CountByMonth(ctx context.Context, filter models.ComplaintFilter) ([]dto.MonthCount, error) {
	scope, args := scopeClause(filter)
	query := `SELECT TO_CHAR(DATE_TRUNC('month', c.created_at), 'YYYY-MM') AS month, COUNT(*) AS count
FROM complaints c
WHERE c.created_at >= DATE_TRUNC('month', NOW()) - INTERVAL '11 months'` + scope + `
GROUP BY DATE_TRUNC('month', c.created_at)
ORDER BY month ASC`
	var counts []dto.MonthCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count by month: %w", err)
	}
	return counts, nil
}
