// Package postgres implements the detection repository against a
// PostgreSQL backing store using pgx. Filter fields are pushed down as
// WHERE clauses; the row-level change feed rides on LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
)

// selectColumns is the detection row projection shared by every query.
const selectColumns = `id, latitude, longitude, status, detected_at, confidence,
	severity, area_affected_km2, response_status, validation_status,
	sar_url, optical_url, catalog_product_id,
	wind_speed_kts, sea_state, notes, tags, news_links,
	created_at, updated_at`

// Ensure Repository implements the interface.
var _ driven.DetectionRepository = (*Repository)(nil)

// Repository is the PostgreSQL-backed detection repository.
type Repository struct {
	pool    *pgxpool.Pool
	connStr string
}

// New connects a pool to the given connection string.
func New(ctx context.Context, connStr string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool, connStr: connStr}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks connectivity, for health reporting.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// List fetches detections matching the pushdown-able filter fields,
// ordered descending by detection time. Radius filtering is not
// pushed down; the service applies it to the returned page.
func (r *Repository) List(ctx context.Context, filters domain.SearchFilters) ([]domain.Detection, error) {
	query, args := buildListQuery(filters)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var detections []domain.Detection //nolint:prealloc // size unknown from query
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		detections = append(detections, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return detections, nil
}

// buildListQuery translates the filters into a parameterised SELECT.
func buildListQuery(filters domain.SearchFilters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if filters.Status != nil {
		add("status = $%d", string(*filters.Status))
	}
	if len(filters.Severities) > 0 {
		add("severity = ANY($%d)", severityStrings(filters.Severities))
	}
	if len(filters.ResponseStatuses) > 0 {
		add("response_status = ANY($%d)", responseStrings(filters.ResponseStatuses))
	}
	if len(filters.ValidationStatuses) > 0 {
		add("validation_status = ANY($%d)", validationStrings(filters.ValidationStatuses))
	}
	if filters.From != nil {
		add("detected_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("detected_at <= $%d", *filters.To)
	}
	if filters.Text != "" {
		args = append(args, "%"+filters.Text+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(notes ILIKE $%d OR catalog_product_id ILIKE $%d)", n, n))
	}
	if len(filters.Tags) > 0 {
		add("tags @> $%d", filters.Tags)
	}

	query := "SELECT " + selectColumns + " FROM detections"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY detected_at DESC"
	return query, args
}

// Update applies the patch to one row, stamps updated_at server-side
// and returns the stored row.
func (r *Repository) Update(ctx context.Context, id string, patch domain.DetectionPatch) (*domain.Detection, error) {
	sets, args := buildUpdateSets(patch)
	if len(sets) == 0 {
		return nil, domain.ErrInvalidInput
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE detections SET %s, updated_at = now() WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), selectColumns,
	)

	row := r.pool.QueryRow(ctx, query, args...)
	d, err := scanDetection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update detection: %w", err)
	}
	return d, nil
}

// buildUpdateSets translates the patch into SET clauses.
func buildUpdateSets(patch domain.DetectionPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(column string, arg any) {
		args = append(args, arg)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Severity != nil {
		set("severity", string(*patch.Severity))
	}
	if patch.AreaAffectedKm2 != nil {
		set("area_affected_km2", *patch.AreaAffectedKm2)
	}
	if patch.ResponseStatus != nil {
		set("response_status", string(*patch.ResponseStatus))
	}
	if patch.ValidationStatus != nil {
		set("validation_status", string(*patch.ValidationStatus))
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.Tags != nil {
		set("tags", *patch.Tags)
	}
	if patch.NewsLinks != nil {
		set("news_links", *patch.NewsLinks)
	}
	if patch.Environmental != nil {
		set("wind_speed_kts", patch.Environmental.WindSpeedKts)
		set("sea_state", patch.Environmental.SeaState)
	}
	if patch.Imagery != nil {
		set("sar_url", patch.Imagery.SARURL)
		set("optical_url", patch.Imagery.OpticalURL)
		set("catalog_product_id", patch.Imagery.CatalogProductID)
	}
	return sets, args
}

// Delete removes one row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM detections WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete detection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDetection reads one detection row.
func scanDetection(row rowScanner) (*domain.Detection, error) {
	var (
		d                domain.Detection
		status           string
		severity         *string
		responseStatus   *string
		validationStatus *string
		sarURL           *string
		opticalURL       *string
		productID        *string
		notes            *string
	)

	err := row.Scan(
		&d.ID, &d.Latitude, &d.Longitude, &status, &d.DetectedAt, &d.Confidence,
		&severity, &d.AreaAffectedKm2, &responseStatus, &validationStatus,
		&sarURL, &opticalURL, &productID,
		&d.Environmental.WindSpeedKts, &d.Environmental.SeaState, &notes, &d.Tags, &d.NewsLinks,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan detection: %w", err)
	}

	d.Status = domain.Status(status)
	if severity != nil {
		s := domain.Severity(*severity)
		d.Severity = &s
	}
	if responseStatus != nil {
		rs := domain.ResponseStatus(*responseStatus)
		d.ResponseStatus = &rs
	}
	if validationStatus != nil {
		vs := domain.ValidationStatus(*validationStatus)
		d.ValidationStatus = &vs
	}
	if sarURL != nil {
		d.Imagery.SARURL = *sarURL
	}
	if opticalURL != nil {
		d.Imagery.OpticalURL = *opticalURL
	}
	if productID != nil {
		d.Imagery.CatalogProductID = *productID
	}
	if notes != nil {
		d.Notes = *notes
	}
	return &d, nil
}

func severityStrings(xs []domain.Severity) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}

func responseStrings(xs []domain.ResponseStatus) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}

func validationStrings(xs []domain.ValidationStatus) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}
