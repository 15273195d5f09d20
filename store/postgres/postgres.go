package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fielder/attribute"
	"fielder/store"
)

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Store is the PostgreSQL-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// DB exposes the underlying handle for lifecycle management.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) CreateAttribute(ctx context.Context, a *attribute.Attribute) error {
	if err := s.checkName(ctx, a); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO custom_attributes
			(project_id, kind, name, description, type, ord, options)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, modified_at;`,
		a.ProjectID,
		string(a.Kind),
		a.Name,
		a.Description,
		string(a.Type),
		a.Order,
		optionsJSON(a.Options),
	).Scan(&a.ID, &a.CreatedAt, &a.ModifiedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicateName
	}
	return err
}

func (s *Store) GetAttribute(ctx context.Context, id int64) (attribute.Attribute, error) {
	var (
		a       attribute.Attribute
		kind    string
		typ     string
		options optionsJSON
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id,
			project_id,
			kind,
			name,
			description,
			type,
			ord,
			options,
			created_at,
			modified_at
		FROM custom_attributes
		WHERE id=$1;`, id).Scan(
		&a.ID,
		&a.ProjectID,
		&kind,
		&a.Name,
		&a.Description,
		&typ,
		&a.Order,
		&options,
		&a.CreatedAt,
		&a.ModifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return attribute.Attribute{}, store.ErrNotFound
	}
	if err != nil {
		return attribute.Attribute{}, err
	}

	a.Kind = attribute.Kind(kind)
	a.Type = attribute.Type(typ)
	a.Options = options
	return a, nil
}

// UpdateAttribute rewrites every mutable column. The duplicate-name check
// runs again because both the name and the project may have changed.
func (s *Store) UpdateAttribute(ctx context.Context, a *attribute.Attribute) error {
	if err := s.checkName(ctx, a); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE custom_attributes
		SET
			project_id=$1,
			kind=$2,
			name=$3,
			description=$4,
			type=$5,
			ord=$6,
			options=$7,
			modified_at=now()
		WHERE id=$8
		RETURNING modified_at;`,
		a.ProjectID,
		string(a.Kind),
		a.Name,
		a.Description,
		string(a.Type),
		a.Order,
		optionsJSON(a.Options),
		a.ID,
	).Scan(&a.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if isUniqueViolation(err) {
		return store.ErrDuplicateName
	}
	return err
}

func (s *Store) DeleteAttribute(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM custom_attributes
		WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListAttributes(ctx context.Context, projectID int64, kind attribute.Kind) ([]attribute.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			project_id,
			kind,
			name,
			description,
			type,
			ord,
			options,
			created_at,
			modified_at
		FROM custom_attributes
		WHERE project_id=$1 AND kind=$2
		ORDER BY ord, name;`, projectID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attrs []attribute.Attribute
	for rows.Next() {
		var (
			a       attribute.Attribute
			k       string
			typ     string
			options optionsJSON
		)
		err := rows.Scan(
			&a.ID,
			&a.ProjectID,
			&k,
			&a.Name,
			&a.Description,
			&typ,
			&a.Order,
			&options,
			&a.CreatedAt,
			&a.ModifiedAt,
		)
		if err != nil {
			return nil, err
		}
		a.Kind = attribute.Kind(k)
		a.Type = attribute.Type(typ)
		a.Options = options
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

func (s *Store) GetValues(ctx context.Context, kind attribute.Kind, itemID int64) (attribute.ValueBag, error) {
	bag := attribute.ValueBag{
		Kind:   kind,
		ItemID: itemID,
	}
	var vals valuesJSON
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id, version, vals
		FROM attribute_values
		WHERE kind=$1 AND item_id=$2;`, string(kind), itemID).Scan(
		&bag.ProjectID,
		&bag.Version,
		&vals,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return attribute.ValueBag{}, store.ErrNotFound
	}
	if err != nil {
		return attribute.ValueBag{}, err
	}
	bag.Values = vals
	return bag, nil
}

// SetValues writes a value bag. A bag with Version 0 must create the row;
// any other version must match the stored one, which then advances by one.
// On updates the project is taken from the stored row, never from the bag,
// so value keys are always checked against the project the item belongs to.
func (s *Store) SetValues(ctx context.Context, bag *attribute.ValueBag) error {
	if bag.Version == 0 {
		if err := s.checkValueKeys(ctx, bag); err != nil {
			return err
		}

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO attribute_values
				(project_id, kind, item_id, version, vals)
			VALUES
				($1, $2, $3, 1, $4);`,
			bag.ProjectID,
			string(bag.Kind),
			bag.ItemID,
			valuesJSON(bag.Values),
		)
		if isUniqueViolation(err) {
			return store.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		bag.Version = 1
		return nil
	}

	var projectID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id
		FROM attribute_values
		WHERE kind=$1 AND item_id=$2;`,
		string(bag.Kind), bag.ItemID,
	).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	bag.ProjectID = projectID

	if err := s.checkValueKeys(ctx, bag); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE attribute_values
		SET vals=$1, version=version+1
		WHERE kind=$2 AND item_id=$3 AND version=$4;`,
		valuesJSON(bag.Values),
		string(bag.Kind),
		bag.ItemID,
		bag.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrVersionConflict
	}
	bag.Version++
	return nil
}

// checkName mirrors the write-path integrity rule: no second attribute with
// the same name for the same project and kind, the current row excluded.
func (s *Store) checkName(ctx context.Context, a *attribute.Attribute) error {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(1)
		FROM custom_attributes
		WHERE project_id=$1 AND kind=$2 AND name=$3 AND id<>$4;`,
		a.ProjectID, string(a.Kind), a.Name, a.ID,
	).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return store.ErrDuplicateName
	}
	return nil
}

// checkValueKeys verifies every key of the bag names an attribute of the
// owning project and kind.
func (s *Store) checkValueKeys(ctx context.Context, bag *attribute.ValueBag) error {
	if len(bag.Values) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(bag.Values))
	args := make([]interface{}, 0, len(bag.Values)+2)
	args = append(args, bag.ProjectID, string(bag.Kind))
	i := 3
	for id := range bag.Values {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		args = append(args, id)
		i++
	}

	var n int
	query := fmt.Sprintf(`
		SELECT count(1)
		FROM custom_attributes
		WHERE project_id=$1 AND kind=$2 AND id IN (%s);`,
		strings.Join(placeholders, ", "))
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if err != nil {
		return err
	}
	if n != len(bag.Values) {
		return store.ErrUnknownAttribute
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
