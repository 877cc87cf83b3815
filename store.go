package apothecary

import (
	"context"
)

// Table status values reported by TableRef.Status.
const (
	TableStatusActive   = "ACTIVE"
	TableStatusCreating = "CREATING"
	TableStatusDeleting = "DELETING"
)

// TableRef is a resolved reference to an existing table.
type TableRef struct {
	Name      string
	Status    string
	ItemCount int64
}

// ScanRequest asks a Store for one page of a scan. Limit bounds the number of items
// evaluated (not returned) and zero means the store default. StartKey is exclusive.
type ScanRequest struct {
	Limit    int
	StartKey Item
	Filter   Filter
}

// ScanResult is one page of a scan. LastKey is nil when the scan is complete.
type ScanResult struct {
	Items   []Item
	LastKey Item
}

// Store is a connection to a key/value table service.
//
// Missing tables are reported with ErrTableNotFound, and CreateTable reports an existing table
// with ErrTableExists. GetItem returns a nil Item and no error when the key is absent.
// UpdateItem creates the item if it does not exist. DeleteItem of an absent key succeeds.
type Store interface {
	DescribeTable(ctx context.Context, tableName string) (TableRef, error)
	CreateTable(ctx context.Context, schema Schema) error
	DeleteTable(ctx context.Context, tableName string) error
	GetItem(ctx context.Context, tableName string, key Item) (Item, error)
	PutItem(ctx context.Context, tableName string, item Item) error
	UpdateItem(ctx context.Context, tableName string, key Item, set Item, remove []string) error
	DeleteItem(ctx context.Context, tableName string, key Item) error
	Scan(ctx context.Context, tableName string, req ScanRequest) (ScanResult, error)
}
