package apothecary

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/btree"
)

// MemStore is an in-memory Store. Each table is a B-tree ordered by encoded primary key,
// so scans are deterministic and resumable from any key. It is safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

type memTable struct {
	schema Schema
	items  *btree.BTreeG[memItem]
}

type memItem struct {
	key  string
	item Item
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

func (s *MemStore) table(name string) (*memTable, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, ErrTableNotFound)
	}
	return t, nil
}

// DescribeTable reports an existing table; in-memory tables are always ACTIVE.
func (s *MemStore) DescribeTable(ctx context.Context, tableName string) (TableRef, error) {
	if err := ctx.Err(); err != nil {
		return TableRef{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return TableRef{}, err
	}
	return TableRef{Name: tableName, Status: TableStatusActive, ItemCount: int64(t.items.Len())}, nil
}

// CreateTable creates an empty table for the schema.
func (s *MemStore) CreateTable(ctx context.Context, schema Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := schema.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[schema.TableName]; ok {
		return fmt.Errorf("table %s: %w", schema.TableName, ErrTableExists)
	}
	s.tables[schema.TableName] = &memTable{
		schema: schema,
		items:  btree.NewG(2, func(a, b memItem) bool { return a.key < b.key }),
	}
	return nil
}

// DeleteTable drops a table and all of its items.
func (s *MemStore) DeleteTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.table(tableName); err != nil {
		return err
	}
	delete(s.tables, tableName)
	return nil
}

// GetItem returns a copy of the stored item, or nil if the key is absent.
func (s *MemStore) GetItem(ctx context.Context, tableName string, key Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return nil, err
	}
	k, err := encodeKey(t.schema, key)
	if err != nil {
		return nil, err
	}
	mi, ok := t.items.Get(memItem{key: k})
	if !ok {
		return nil, nil
	}
	return copyItem(mi.item), nil
}

// PutItem replaces the item stored under the item's key.
func (s *MemStore) PutItem(ctx context.Context, tableName string, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(tableName)
	if err != nil {
		return err
	}
	k, err := encodeKey(t.schema, item)
	if err != nil {
		return err
	}
	t.items.ReplaceOrInsert(memItem{key: k, item: copyItem(item)})
	return nil
}

// UpdateItem sets and removes attributes of the item stored under key, creating it if needed.
func (s *MemStore) UpdateItem(ctx context.Context, tableName string, key Item, set Item, remove []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(tableName)
	if err != nil {
		return err
	}
	k, err := encodeKey(t.schema, key)
	if err != nil {
		return err
	}
	item := copyItem(key)
	if mi, ok := t.items.Get(memItem{key: k}); ok {
		item = copyItem(mi.item)
	}
	applyUpdate(item, set, remove)
	t.items.ReplaceOrInsert(memItem{key: k, item: item})
	return nil
}

// DeleteItem removes the item stored under key, if any.
func (s *MemStore) DeleteItem(ctx context.Context, tableName string, key Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(tableName)
	if err != nil {
		return err
	}
	k, err := encodeKey(t.schema, key)
	if err != nil {
		return err
	}
	t.items.Delete(memItem{key: k})
	return nil
}

// Scan evaluates up to req.Limit items in key order after req.StartKey.
func (s *MemStore) Scan(ctx context.Context, tableName string, req ScanRequest) (ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return ScanResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(tableName)
	if err != nil {
		return ScanResult{}, err
	}
	var start string
	if len(req.StartKey) > 0 {
		if start, err = encodeKey(t.schema, req.StartKey); err != nil {
			return ScanResult{}, err
		}
	}
	page := newScanPage(t.schema, req)
	t.items.AscendGreaterOrEqual(memItem{key: start}, func(mi memItem) bool {
		if start != "" && mi.key == start {
			return true
		}
		return page.add(mi.item)
	})
	return page.result(), nil
}

// scanPage accumulates one page of a scan for the local stores, following DynamoDB's rule
// that Limit counts evaluated items before the filter is applied.
type scanPage struct {
	schema    Schema
	req       ScanRequest
	evaluated int
	last      Item
	more      bool
	items     []Item
}

func newScanPage(schema Schema, req ScanRequest) *scanPage {
	return &scanPage{schema: schema, req: req}
}

// add evaluates one item and reports whether the scan should continue.
func (p *scanPage) add(item Item) bool {
	if p.req.Limit > 0 && p.evaluated == p.req.Limit {
		p.more = true
		return false
	}
	p.evaluated++
	p.last = item
	if p.req.Filter.Match(item) {
		p.items = append(p.items, copyItem(item))
	}
	return true
}

func (p *scanPage) result() ScanResult {
	res := ScanResult{Items: p.items}
	if p.more && p.last != nil {
		res.LastKey, _ = p.schema.KeyOf(p.last)
	}
	return res
}

func applyUpdate(item Item, set Item, remove []string) {
	for k, v := range set {
		item[k] = v
	}
	for _, k := range remove {
		delete(item, k)
	}
}

func copyItem(item Item) Item {
	c := make(Item, len(item))
	for k, v := range item {
		c[k] = v
	}
	return c
}

// encodeKey renders the primary key of an item as an unambiguous string: for each key
// attribute, its kind, a length prefix, and its canonical bytes.
func encodeKey(schema Schema, item Item) (string, error) {
	key, err := schema.KeyOf(item)
	if err != nil {
		return "", err
	}
	var buf []byte
	buf = appendKeyPart(buf, key[schema.PartKey.Name])
	if schema.HasSortKey() {
		buf = appendKeyPart(buf, key[schema.SortKey.Name])
	}
	return string(buf), nil
}

func appendKeyPart(buf []byte, av types.AttributeValue) []byte {
	var raw []byte
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		buf = append(buf, 'S')
		raw = []byte(v.Value)
	case *types.AttributeValueMemberN:
		buf = append(buf, 'N')
		raw = []byte(canonicalNumber(v.Value))
	case *types.AttributeValueMemberB:
		buf = append(buf, 'B')
		raw = v.Value
	}
	buf = binary.AppendUvarint(buf, uint64(len(raw)))
	return append(buf, raw...)
}

// canonicalNumber normalizes equal numbers, such as "1" and "1.0", to one representation.
func canonicalNumber(n string) string {
	f, ok := new(big.Float).SetPrec(256).SetString(n)
	if !ok {
		return n
	}
	return f.Text('g', -1)
}
