package domain

// RecordRepository defines the interface for fetch history persistence
type RecordRepository interface {
	// Create creates a new record
	Create(record *Record) error

	// Update updates an existing record
	Update(record *Record) error

	// Delete deletes a record by ID
	Delete(id string) error

	// FindByID finds a record by ID
	FindByID(id string) (*Record, error)

	// FindAll finds all records with optional filters, newest first
	FindAll(filters map[string]interface{}) ([]*Record, error)

	// GetStats returns record statistics
	GetStats() (*RecordStats, error)
}

// RecordStats represents history statistics
type RecordStats struct {
	Total       int64 `json:"total"`
	Resolving   int64 `json:"resolving"`
	Resolved    int64 `json:"resolved"`
	Downloading int64 `json:"downloading"`
	Completed   int64 `json:"completed"`
	Failed      int64 `json:"failed"`
	Cancelled   int64 `json:"cancelled"`
}
