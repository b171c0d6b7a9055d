package catalog

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/weavesuite/weavesuite/errors"
)

// Store handles persistence of services, specs, and endpoints.
type Store struct {
	db *sql.DB
}

// NewStore creates a new catalog store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need to compose
// multi-store transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateService inserts a discovered service record.
func (s *Store) CreateService(ms *Microservice) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO microservices (name, namespace, endpoint, spec_path)
		VALUES (?, ?, ?, ?)
	`, ms.Name, ms.Namespace, ms.Endpoint, sql.NullString{String: ms.SpecPath, Valid: ms.SpecPath != ""})
	if err != nil {
		return 0, errors.Wrap(err, "failed to create service")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get service id")
	}
	return id, nil
}

// ListServices returns all discovered services ordered by id.
func (s *Store) ListServices() ([]*Microservice, error) {
	rows, err := s.db.Query(`
		SELECT id, name, namespace, endpoint, COALESCE(spec_path, '')
		FROM microservices ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list services")
	}
	defer rows.Close()

	var services []*Microservice
	for rows.Next() {
		var ms Microservice
		if err := rows.Scan(&ms.ID, &ms.Name, &ms.Namespace, &ms.Endpoint, &ms.SpecPath); err != nil {
			return nil, errors.Wrap(err, "failed to scan service")
		}
		services = append(services, &ms)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating services")
	}
	return services, nil
}

// InsertSpec stores a newly fetched contract document. Specs are
// append-only: superseding a contract means inserting a new row.
func (s *Store) InsertSpec(microserviceID *int64, content []byte) (int64, error) {
	var msID sql.NullInt64
	if microserviceID != nil {
		msID = sql.NullInt64{Int64: *microserviceID, Valid: true}
	}

	res, err := s.db.Exec(`
		INSERT INTO api_specs (microservice_id, content, fetched_at)
		VALUES (?, ?, ?)
	`, msID, string(content), time.Now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert spec")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get spec id")
	}
	return id, nil
}

// GetSpec retrieves a contract document by id.
func (s *Store) GetSpec(id int64) (*APISpec, error) {
	var spec APISpec
	var msID sql.NullInt64
	var content string

	err := s.db.QueryRow(`
		SELECT id, microservice_id, content, fetched_at
		FROM api_specs WHERE id = ?`, id).
		Scan(&spec.ID, &msID, &content, &spec.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "spec %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get spec")
	}

	if msID.Valid {
		spec.MicroserviceID = &msID.Int64
	}
	spec.Content = []byte(content)
	return &spec, nil
}

// ListSpecIDs returns the ids of all stored contract documents, ordered.
func (s *Store) ListSpecIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT id FROM api_specs ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list specs")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan spec id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating specs")
	}
	return ids, nil
}

// DeleteSpec removes a contract document. Its endpoints and their coverage
// rows cascade via foreign keys.
func (s *Store) DeleteSpec(id int64) error {
	result, err := s.db.Exec(`DELETE FROM api_specs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete spec")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "spec %d", id)
	}
	return nil
}

// UpsertEndpoint inserts or updates an endpoint keyed on
// (spec_id, path, method) inside the caller's transaction. Re-running
// extraction on an unchanged contract updates metadata fields in place.
// Returns true when a new row was created.
func (s *Store) UpsertEndpoint(tx *sql.Tx, ep *Endpoint) (bool, error) {
	tags, err := json.Marshal(ep.Tags)
	if err != nil {
		return false, errors.Wrap(err, "failed to marshal endpoint tags")
	}
	if ep.Tags == nil {
		tags = []byte("[]")
	}

	var existingID int64
	err = tx.QueryRow(`
		SELECT id FROM endpoints WHERE spec_id = ? AND path = ? AND method = ?`,
		ep.SpecID, ep.Path, ep.Method).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.Exec(`
			INSERT INTO endpoints (spec_id, path, method, operation_id, summary, tags)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ep.SpecID, ep.Path, ep.Method, ep.OperationID, ep.Summary, string(tags))
		if err != nil {
			return false, errors.Wrap(err, "failed to insert endpoint")
		}
		ep.ID, err = res.LastInsertId()
		if err != nil {
			return false, errors.Wrap(err, "failed to get endpoint id")
		}
		return true, nil

	case err != nil:
		return false, errors.Wrap(err, "failed to look up endpoint")

	default:
		_, err := tx.Exec(`
			UPDATE endpoints SET operation_id = ?, summary = ?, tags = ? WHERE id = ?`,
			ep.OperationID, ep.Summary, string(tags), existingID)
		if err != nil {
			return false, errors.Wrap(err, "failed to update endpoint")
		}
		ep.ID = existingID
		return false, nil
	}
}

// GetEndpoint retrieves one endpoint by id.
func (s *Store) GetEndpoint(id int64) (*Endpoint, error) {
	row := s.db.QueryRow(`
		SELECT id, spec_id, path, method, operation_id, summary, tags
		FROM endpoints WHERE id = ?`, id)
	ep, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "endpoint %d", id)
	}
	return ep, err
}

// ListEndpoints returns endpoints ordered by id. When specID is non-nil the
// result is scoped to that contract; otherwise the full catalog is
// returned. The ascending id order is the matcher's tie-break.
func (s *Store) ListEndpoints(specID *int64) ([]*Endpoint, error) {
	var rows *sql.Rows
	var err error
	if specID != nil {
		rows, err = s.db.Query(`
			SELECT id, spec_id, path, method, operation_id, summary, tags
			FROM endpoints WHERE spec_id = ? ORDER BY id ASC`, *specID)
	} else {
		rows, err = s.db.Query(`
			SELECT id, spec_id, path, method, operation_id, summary, tags
			FROM endpoints ORDER BY id ASC`)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list endpoints")
	}
	defer rows.Close()

	var endpoints []*Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating endpoints")
	}
	return endpoints, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEndpoint(row rowScanner) (*Endpoint, error) {
	var ep Endpoint
	var tags string
	if err := row.Scan(&ep.ID, &ep.SpecID, &ep.Path, &ep.Method, &ep.OperationID, &ep.Summary, &tags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan endpoint")
	}
	if tags != "" && tags != "[]" {
		if err := json.Unmarshal([]byte(tags), &ep.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal endpoint tags")
		}
	}
	return &ep, nil
}
