package models

// ImportStatus is the lifecycle state of a CSV import batch.
type ImportStatus string

// Batch states. A pending batch holds parsed rows for review; committing
// turns valid rows into transactions, discarding abandons the batch.
const (
	ImportPending   ImportStatus = "pending"
	ImportCommitted ImportStatus = "committed"
	ImportDiscarded ImportStatus = "discarded"
)

// ImportBatch is a staged CSV upload for one portfolio.
type ImportBatch struct {
	Base
	PortfolioID string       `gorm:"type:uuid;index;not null" json:"portfolio_id"`
	Filename    string       `gorm:"size:255" json:"filename"`
	Status      ImportStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	RowCount    int          `json:"row_count"`
	ErrorCount  int          `json:"error_count"`

	Rows []ImportRow `gorm:"foreignKey:BatchID" json:"rows,omitempty"`
}
