package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// WriteJSON writes the collection as an indented JSON array.
func WriteJSON(w io.Writer, detections []domain.Detection) error {
	if detections == nil {
		detections = []domain.Detection{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(detections); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// ReadJSON parses a JSON array previously produced by WriteJSON.
func ReadJSON(r io.Reader) ([]domain.Detection, error) {
	var detections []domain.Detection
	if err := json.NewDecoder(r).Decode(&detections); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return detections, nil
}
