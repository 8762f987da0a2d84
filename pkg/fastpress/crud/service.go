// Package crud provides a generic table service over sqlx and a controller
// exposing it as REST endpoints.
package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("crud: record not found")
	ErrInvalidColumn = errors.New("crud: invalid column")
	ErrNoData        = errors.New("crud: no data")
	ErrInvalidWindow = errors.New("crud: skip and take must not be negative")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options controls FindAll. A nil Take returns every row; Limit(0) returns
// none.
type Options struct {
	Skip    int
	Take    *int
	OrderBy string // "column", "column ASC" or "column DESC"
}

// Limit returns n as an Options.Take value.
func Limit(n int) *int { return &n }

// PaginatedResult is one page of rows.
type PaginatedResult[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
}

// Service reads and writes one table. T is scanned with sqlx, so its fields
// carry db tags matching the table columns.
type Service[T any] struct {
	db       *sqlx.DB
	table    string
	idColumn string
	columns  map[string]bool
}

type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	idColumn string
}

// WithIDColumn sets the primary key column. The default is "id".
func WithIDColumn(column string) ServiceOption {
	return func(c *serviceConfig) {
		c.idColumn = column
	}
}

// NewService creates a service for table. Column names are taken from T's
// db tags and are the only ones accepted in filters and writes.
func NewService[T any](db *sqlx.DB, table string, opts ...ServiceOption) (*Service[T], error) {
	cfg := serviceConfig{idColumn: "id"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidColumn, table)
	}
	if !identifier.MatchString(cfg.idColumn) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, cfg.idColumn)
	}

	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("crud: %s: model must be a struct, got %v", table, typ)
	}
	columns := make(map[string]bool)
	for name := range db.Mapper.TypeMap(typ).Names {
		if !strings.Contains(name, ".") {
			columns[name] = true
		}
	}

	return &Service[T]{db: db, table: table, idColumn: cfg.idColumn, columns: columns}, nil
}

// Table returns the table name.
func (s *Service[T]) Table() string { return s.table }

// FindAll returns rows in the requested window.
func (s *Service[T]) FindAll(ctx context.Context, opts Options) ([]T, error) {
	if opts.Skip < 0 || (opts.Take != nil && *opts.Take < 0) {
		return nil, ErrInvalidWindow
	}
	query := "SELECT * FROM " + s.table
	order, err := s.orderClause(opts.OrderBy)
	if err != nil {
		return nil, err
	}
	query += order

	var args []any
	if opts.Take != nil {
		query += " LIMIT ?"
		args = append(args, *opts.Take)
	}
	if opts.Skip > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Skip)
	}

	items := []T{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("crud: %s find all: %w", s.table, err)
	}
	return items, nil
}

// FindOne returns the first row matching every column/value pair of where.
func (s *Service[T]) FindOne(ctx context.Context, where map[string]any) (*T, error) {
	clause, args, err := s.whereClause(where)
	if err != nil {
		return nil, err
	}
	var item T
	err = s.db.GetContext(ctx, &item, s.db.Rebind("SELECT * FROM "+s.table+clause+" LIMIT 1"), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crud: %s find one: %w", s.table, err)
	}
	return &item, nil
}

func (s *Service[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return s.FindOne(ctx, map[string]any{s.idColumn: id})
}

// Create inserts data and returns the stored row.
func (s *Service[T]) Create(ctx context.Context, data map[string]any) (*T, error) {
	keys, err := s.writableKeys(data)
	if err != nil {
		return nil, err
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = data[k]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		s.table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))

	var item T
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).StructScan(&item); err != nil {
		return nil, fmt.Errorf("crud: %s create: %w", s.table, err)
	}
	return &item, nil
}

// Update writes data to the row with the given id and returns it.
func (s *Service[T]) Update(ctx context.Context, id any, data map[string]any) (*T, error) {
	keys, err := s.writableKeys(data)
	if err != nil {
		return nil, err
	}
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, data[k])
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? RETURNING *", s.table, strings.Join(sets, ", "), s.idColumn)

	var item T
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).StructScan(&item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crud: %s update: %w", s.table, err)
	}
	return &item, nil
}

// Delete removes the row with the given id.
func (s *Service[T]) Delete(ctx context.Context, id any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM "+s.table+" WHERE "+s.idColumn+" = ?"), id)
	if err != nil {
		return fmt.Errorf("crud: %s delete: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("crud: %s delete: %w", s.table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Paginate returns page (1 based) of the rows matching where.
func (s *Service[T]) Paginate(ctx context.Context, where map[string]any, page, pageSize int, orderBy string) (PaginatedResult[T], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	skip := (page - 1) * pageSize

	clause, args, err := s.whereClause(where)
	if err != nil {
		return PaginatedResult[T]{}, err
	}
	order, err := s.orderClause(orderBy)
	if err != nil {
		return PaginatedResult[T]{}, err
	}

	total, err := s.Count(ctx, where)
	if err != nil {
		return PaginatedResult[T]{}, err
	}

	items := []T{}
	query := "SELECT * FROM " + s.table + clause + order + " LIMIT ? OFFSET ?"
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), append(args, pageSize, skip)...); err != nil {
		return PaginatedResult[T]{}, fmt.Errorf("crud: %s paginate: %w", s.table, err)
	}

	return PaginatedResult[T]{
		Data:     items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  skip+pageSize < total,
	}, nil
}

// Count returns the number of rows matching where.
func (s *Service[T]) Count(ctx context.Context, where map[string]any) (int, error) {
	clause, args, err := s.whereClause(where)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM "+s.table+clause), args...); err != nil {
		return 0, fmt.Errorf("crud: %s count: %w", s.table, err)
	}
	return n, nil
}

func (s *Service[T]) Exists(ctx context.Context, where map[string]any) (bool, error) {
	n, err := s.Count(ctx, where)
	return n > 0, err
}

func (s *Service[T]) checkColumn(name string) error {
	if !identifier.MatchString(name) || !s.columns[name] {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, name)
	}
	return nil
}

// whereClause builds " WHERE a = ? AND b = ?" with keys in sorted order.
func (s *Service[T]) whereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	keys := sortedKeys(where)
	conds := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if err := s.checkColumn(k); err != nil {
			return "", nil, err
		}
		conds[i] = k + " = ?"
		args[i] = where[k]
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *Service[T]) orderClause(orderBy string) (string, error) {
	fields := strings.Fields(orderBy)
	switch len(fields) {
	case 0:
		return "", nil
	case 1, 2:
		if err := s.checkColumn(fields[0]); err != nil {
			return "", err
		}
		dir := "ASC"
		if len(fields) == 2 {
			dir = strings.ToUpper(fields[1])
			if dir != "ASC" && dir != "DESC" {
				return "", fmt.Errorf("crud: invalid order direction %q", fields[1])
			}
		}
		return " ORDER BY " + fields[0] + " " + dir, nil
	default:
		return "", fmt.Errorf("crud: invalid order %q", orderBy)
	}
}

// writableKeys validates the columns of data, excluding the primary key.
func (s *Service[T]) writableKeys(data map[string]any) ([]string, error) {
	keys := make([]string, 0, len(data))
	for _, k := range sortedKeys(data) {
		if k == s.idColumn {
			continue
		}
		if err := s.checkColumn(k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, ErrNoData
	}
	return keys, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
