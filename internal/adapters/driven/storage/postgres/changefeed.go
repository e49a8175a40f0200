package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/logger"
)

// notifyChannel is the LISTEN/NOTIFY channel carrying row-level
// changes. A database trigger on the detections table publishes one
// payload per mutation:
//
//	{"op": "INSERT"|"UPDATE"|"DELETE", "record": {...detection row...}}
//
// For deletes the record carries at least the id.
const notifyChannel = "spillview_detections"

// notification is the trigger payload shape. The record is the flat
// row_to_json rendering of the detections row.
type notification struct {
	Op     string    `json:"op"`
	Record rowRecord `json:"record"`
}

// rowRecord mirrors the detections table columns.
type rowRecord struct {
	ID               string                   `json:"id"`
	Latitude         float64                  `json:"latitude"`
	Longitude        float64                  `json:"longitude"`
	Status           domain.Status            `json:"status"`
	DetectedAt       time.Time                `json:"detected_at"`
	Confidence       *float64                 `json:"confidence"`
	Severity         *domain.Severity         `json:"severity"`
	AreaAffectedKm2  *float64                 `json:"area_affected_km2"`
	ResponseStatus   *domain.ResponseStatus   `json:"response_status"`
	ValidationStatus *domain.ValidationStatus `json:"validation_status"`
	SARURL           *string                  `json:"sar_url"`
	OpticalURL       *string                  `json:"optical_url"`
	CatalogProductID *string                  `json:"catalog_product_id"`
	WindSpeedKts     *float64                 `json:"wind_speed_kts"`
	SeaState         *int                     `json:"sea_state"`
	Notes            *string                  `json:"notes"`
	Tags             []string                 `json:"tags"`
	NewsLinks        []string                 `json:"news_links"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func (r *rowRecord) toDetection() domain.Detection {
	d := domain.Detection{
		ID:               r.ID,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Status:           r.Status,
		DetectedAt:       r.DetectedAt,
		Confidence:       r.Confidence,
		Severity:         r.Severity,
		AreaAffectedKm2:  r.AreaAffectedKm2,
		ResponseStatus:   r.ResponseStatus,
		ValidationStatus: r.ValidationStatus,
		Environmental: domain.Environmental{
			WindSpeedKts: r.WindSpeedKts,
			SeaState:     r.SeaState,
		},
		Tags:      r.Tags,
		NewsLinks: r.NewsLinks,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.SARURL != nil {
		d.Imagery.SARURL = *r.SARURL
	}
	if r.OpticalURL != nil {
		d.Imagery.OpticalURL = *r.OpticalURL
	}
	if r.CatalogProductID != nil {
		d.Imagery.CatalogProductID = *r.CatalogProductID
	}
	if r.Notes != nil {
		d.Notes = *r.Notes
	}
	return d
}

// Subscribe opens the row-level change feed on a dedicated
// connection. The returned cancel function tears the listener down
// and closes the event channel. Events are forwarded in delivery
// order; no ordering relative to commit order is guaranteed.
func (r *Repository) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, func(), error) {
	conn, err := pgx.Connect(ctx, r.connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Close(ctx)
		return nil, nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	listenCtx, cancelCtx := context.WithCancel(ctx)
	events := make(chan domain.ChangeEvent, 16)

	go func() {
		defer close(events)
		defer conn.Close(context.Background())

		for {
			n, err := conn.WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					logger.Warn("Change feed terminated: %v", err)
				}
				return
			}

			ev, err := parseNotification(n.Payload)
			if err != nil {
				logger.Warn("Dropping malformed change notification: %v", err)
				continue
			}

			select {
			case events <- *ev:
			case <-listenCtx.Done():
				return
			}
		}
	}()

	cancel := func() {
		cancelCtx()
	}
	return events, cancel, nil
}

// parseNotification maps a trigger payload to a change event.
func parseNotification(payload string) (*domain.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var changeType domain.ChangeType
	switch n.Op {
	case "INSERT":
		changeType = domain.ChangeInsert
	case "UPDATE":
		changeType = domain.ChangeUpdate
	case "DELETE":
		changeType = domain.ChangeDelete
	default:
		return nil, fmt.Errorf("unknown operation %q", n.Op)
	}

	return &domain.ChangeEvent{Type: changeType, Detection: n.Record.toDetection()}, nil
}
