// ===========================================
// Package repository - Data Access Layer
// ===========================================
// Handlers call services, services call repositories.
// Repositories own the SQL and nothing else.
//
// NAMING CONVENTION:
// - Methods named after what they do: List, Get, Create
// - Input: domain models or primitives
// - Output: domain models or errors
// ===========================================

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/marketgeo/internal/models"
)

// Common errors returned by repository methods.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)

// PricingRepository reads pricing reference data. It never writes:
// page types and plans are managed outside this service.
type PricingRepository struct {
	db *pgxpool.Pool
}

// NewPricingRepository creates a new pricing repository.
func NewPricingRepository(db *pgxpool.Pool) *PricingRepository {
	return &PricingRepository{db: db}
}

// ListPageTypes returns the active page types in display order.
func (r *PricingRepository) ListPageTypes(ctx context.Context) ([]models.PageType, error) {
	query := `
		SELECT id, name, description, prices, status, sort_order, created_at
		FROM page_types
		WHERE status = $1
		ORDER BY sort_order, name
	`

	rows, err := r.db.Query(ctx, query, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list page types: %w", err)
	}
	defer rows.Close()

	pageTypes := make([]models.PageType, 0)
	for rows.Next() {
		pt, err := scanPageType(rows)
		if err != nil {
			return nil, err
		}
		pageTypes = append(pageTypes, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list page types: %w", err)
	}

	return pageTypes, nil
}

// GetPageType retrieves an active page type by ID.
// Returns ErrNotFound if it doesn't exist or is inactive.
func (r *PricingRepository) GetPageType(ctx context.Context, id uuid.UUID) (*models.PageType, error) {
	query := `
		SELECT id, name, description, prices, status, sort_order, created_at
		FROM page_types
		WHERE id = $1 AND status = $2
	`

	pt, err := scanPageType(r.db.QueryRow(ctx, query, id, models.StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return pt, nil
}

// ListImagePricingPlans returns the active image pricing plans ordered
// by image limit.
func (r *PricingRepository) ListImagePricingPlans(ctx context.Context) ([]models.PricingPlan, error) {
	query := `
		SELECT id, name, image_limit, prices, status, created_at
		FROM image_pricing_plans
		WHERE status = $1
		ORDER BY image_limit, name
	`

	rows, err := r.db.Query(ctx, query, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list image pricing plans: %w", err)
	}
	defer rows.Close()

	plans := make([]models.PricingPlan, 0)
	for rows.Next() {
		var (
			plan   models.PricingPlan
			prices []byte
		)
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.ImageLimit, &prices, &plan.Status, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image pricing plan: %w", err)
		}
		if err := decodePrices(prices, &plan.Prices); err != nil {
			return nil, fmt.Errorf("image pricing plan %s: %w", plan.Name, err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list image pricing plans: %w", err)
	}

	return plans, nil
}

// ===========================================
// Helper Functions
// ===========================================

func scanPageType(row pgx.Row) (*models.PageType, error) {
	var (
		pt     models.PageType
		prices []byte
	)
	err := row.Scan(&pt.ID, &pt.Name, &pt.Description, &prices, &pt.Status, &pt.SortOrder, &pt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan page type: %w", err)
	}
	if err := decodePrices(prices, &pt.Prices); err != nil {
		return nil, fmt.Errorf("page type %s: %w", pt.Name, err)
	}
	return &pt, nil
}

// decodePrices reads a json price column. The column is json rather
// than jsonb, so the bytes carry the original key order.
func decodePrices(raw []byte, dest *models.PriceTable) error {
	if len(raw) == 0 {
		*dest = models.PriceTable{}
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("invalid prices: %w", err)
	}
	return nil
}
