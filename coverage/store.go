package coverage

import (
	"database/sql"

	"github.com/weavesuite/weavesuite/errors"
)

// Store handles persistence of test<->endpoint coverage mappings.
type Store struct {
	db *sql.DB
}

// NewStore creates a new coverage store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReplaceForTest replaces a test's coverage rows wholesale in a single
// transaction: delete the scoped rows, insert the new set, commit. The
// delete-then-insert keeps stale associations from surviving a test-body
// edit; running it in one transaction avoids a visible empty-coverage
// window under concurrent reads.
func (s *Store) ReplaceForTest(testID int64, endpointIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin coverage replace")
	}

	if _, err := tx.Exec(`DELETE FROM test_endpoint_coverage WHERE test_id = ?`, testID); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "failed to clear coverage for test %d", testID)
	}

	seen := make(map[int64]struct{}, len(endpointIDs))
	for _, epID := range endpointIDs {
		if _, dup := seen[epID]; dup {
			continue // duplicates within one test collapse to a single row
		}
		seen[epID] = struct{}{}

		if _, err := tx.Exec(`
			INSERT INTO test_endpoint_coverage (test_id, endpoint_id) VALUES (?, ?)`,
			testID, epID); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to insert coverage row (test %d, endpoint %d)", testID, epID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit coverage replace for test %d", testID)
	}
	return nil
}

// EndpointIDsForTest returns the endpoint ids a test covers, ordered.
func (s *Store) EndpointIDsForTest(testID int64) ([]int64, error) {
	return s.queryIDs(`
		SELECT endpoint_id FROM test_endpoint_coverage
		WHERE test_id = ? ORDER BY endpoint_id ASC`, testID)
}

// TestIDsForEndpoint returns the ids of tests covering an endpoint.
func (s *Store) TestIDsForEndpoint(endpointID int64) ([]int64, error) {
	return s.queryIDs(`
		SELECT test_id FROM test_endpoint_coverage
		WHERE endpoint_id = ? ORDER BY test_id ASC`, endpointID)
}

func (s *Store) queryIDs(query string, arg int64) ([]int64, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query coverage rows")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan coverage row")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating coverage rows")
	}
	return ids, nil
}
