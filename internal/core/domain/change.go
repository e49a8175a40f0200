package domain

// ChangeType identifies a row-level mutation delivered on the live
// subscription channel.
type ChangeType string

// Change types.
const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is one row-level notification from the backing store's
// change feed. For deletes only the ID of the detection is guaranteed
// to be populated.
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	Detection Detection  `json:"detection"`
}
