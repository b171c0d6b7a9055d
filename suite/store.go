package suite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/weavesuite/weavesuite/errors"
)

// Store handles persistence of tests and test templates.
type Store struct {
	db *sql.DB
}

// NewStore creates a new suite store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const testColumns = `id, name, code, spec_id, template_id, status,
	last_execution, execution_time, error_message, services_visited`

// CreateTest inserts a new generated test. Name is globally unique.
func (s *Store) CreateTest(test *Test) (int64, error) {
	visited, err := marshalVisited(test.ServicesVisited)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`
		INSERT INTO tests (name, code, spec_id, template_id, status, services_visited)
		VALUES (?, ?, ?, ?, ?, ?)
	`, test.Name, test.Code, nullInt64(test.SpecID), nullInt64(test.TemplateID),
		StatusPending, visited)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create test %s", test.Name)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get test id")
	}
	return id, nil
}

// UpdateTestCode replaces a test's body and provenance. Used when the
// generation pipeline regenerates a test under an existing name.
func (s *Store) UpdateTestCode(id int64, code string, specID *int64) error {
	result, err := s.db.Exec(`UPDATE tests SET code = ?, spec_id = ? WHERE id = ?`,
		code, nullInt64(specID), id)
	if err != nil {
		return errors.Wrap(err, "failed to update test code")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "test %d", id)
	}
	return nil
}

// GetTest retrieves a test by id.
func (s *Store) GetTest(id int64) (*Test, error) {
	row := s.db.QueryRow(`SELECT `+testColumns+` FROM tests WHERE id = ?`, id)
	test, err := scanTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "test %d", id)
	}
	return test, err
}

// GetTestByName retrieves a test by its globally unique name.
func (s *Store) GetTestByName(name string) (*Test, error) {
	row := s.db.QueryRow(`SELECT `+testColumns+` FROM tests WHERE name = ?`, name)
	test, err := scanTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "test %q", name)
	}
	return test, err
}

// ListTests returns all tests ordered by id.
func (s *Store) ListTests() ([]*Test, error) {
	rows, err := s.db.Query(`SELECT ` + testColumns + ` FROM tests ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tests")
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating tests")
	}
	return tests, nil
}

// UpdateResult writes one execution outcome in a single transaction:
// terminal status, timestamp, duration, message, and a defined (possibly
// empty) services_visited value.
func (s *Store) UpdateResult(id int64, result *ExecutionResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin result update")
	}

	res, err := tx.Exec(`
		UPDATE tests
		SET status = ?,
		    last_execution = ?,
		    execution_time = ?,
		    error_message = ?,
		    services_visited = COALESCE(services_visited, '[]')
		WHERE id = ?
	`, result.Status, time.Now().UTC(), result.ExecutionTime,
		sql.NullString{String: result.ErrorMessage, Valid: result.ErrorMessage != ""}, id)
	if err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "failed to update results for test %d", id)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		tx.Rollback()
		return errors.Wrapf(errors.ErrNotFound, "test %d", id)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit result update for test %d", id)
	}
	return nil
}

// ReplaceServicesVisited overwrites the list of services a test touched
// on its last run. A nil list stores an empty array, never NULL.
func (s *Store) ReplaceServicesVisited(id int64, services []string) error {
	visited, err := marshalVisited(services)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`UPDATE tests SET services_visited = ? WHERE id = ?`, visited, id)
	if err != nil {
		return errors.Wrapf(err, "failed to update services visited for test %d", id)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "test %d", id)
	}
	return nil
}

// UpsertTemplate inserts or updates a template by name. Content equality
// is checked first so an unchanged template is a no-op write.
func (s *Store) UpsertTemplate(name, code string) (int64, error) {
	var id int64
	var existing string
	err := s.db.QueryRow(`SELECT id, code FROM test_templates WHERE name = ?`, name).
		Scan(&id, &existing)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.Exec(`
			INSERT INTO test_templates (name, code) VALUES (?, ?)`, name, code)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to create template %s", name)
		}
		return res.LastInsertId()

	case err != nil:
		return 0, errors.Wrap(err, "failed to look up template")

	case existing == code:
		return id, nil // unchanged, skip the write

	default:
		_, err := s.db.Exec(`
			UPDATE test_templates SET code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			code, id)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to update template %s", name)
		}
		return id, nil
	}
}

// GetTemplate retrieves a template by id.
func (s *Store) GetTemplate(id int64) (*TestTemplate, error) {
	var tpl TestTemplate
	err := s.db.QueryRow(`
		SELECT id, name, code, created_at, updated_at
		FROM test_templates WHERE id = ?`, id).
		Scan(&tpl.ID, &tpl.Name, &tpl.Code, &tpl.CreatedAt, &tpl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "template %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get template")
	}
	return &tpl, nil
}

func scanTest(row interface{ Scan(...interface{}) error }) (*Test, error) {
	var test Test
	var specID, templateID sql.NullInt64
	var lastExec sql.NullTime
	var execTime sql.NullFloat64
	var errMsg sql.NullString
	var visited string

	err := row.Scan(&test.ID, &test.Name, &test.Code, &specID, &templateID,
		&test.Status, &lastExec, &execTime, &errMsg, &visited)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan test")
	}

	if specID.Valid {
		test.SpecID = &specID.Int64
	}
	if templateID.Valid {
		test.TemplateID = &templateID.Int64
	}
	if lastExec.Valid {
		t := lastExec.Time
		test.LastExecution = &t
	}
	test.ExecutionTime = execTime.Float64
	test.ErrorMessage = errMsg.String

	if visited != "" {
		if err := json.Unmarshal([]byte(visited), &test.ServicesVisited); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal services_visited")
		}
	}
	if test.ServicesVisited == nil {
		test.ServicesVisited = []string{}
	}
	return &test, nil
}

func marshalVisited(visited []string) (string, error) {
	if visited == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(visited)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal services_visited")
	}
	return string(raw), nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
