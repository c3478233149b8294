// Explicit transactions as a stack of savepoints.
//
// Each Transaction or nested Savepoint captures a snapshot of every table
// on entry. The callback runs against the live store; returning an error
// restores the snapshot (tables created inside are dropped again).
// Returning ErrRollback rolls back without propagating an error.
//
// Transactions follow the single-writer discipline from the concurrency
// model: concurrent writers outside the transaction are not isolated from
// a rollback.

package tabstore

import "errors"

// Tx is a handle to the store inside a transaction.
type Tx struct {
	store *Store
}

// Table returns the named table, like [Store.Table].
func (tx *Tx) Table(name string) (*Table, error) {
	return tx.store.Table(name)
}

// Savepoint runs fn inside a nested savepoint. An error from fn rewinds
// only the work done inside fn.
func (tx *Tx) Savepoint(fn func(*Tx) error) error {
	return tx.store.runSavepoint(fn)
}

// Transaction runs fn, rolling back all table state on error.
func (s *Store) Transaction(fn func(*Tx) error) error {
	return s.runSavepoint(fn)
}

func (s *Store) runSavepoint(fn func(*Tx) error) error {
	before := s.captureState()
	if err := fn(&Tx{store: s}); err != nil {
		if rerr := s.rewind(before); rerr != nil {
			return rerr
		}
		if errors.Is(err, ErrRollback) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) captureState() map[string]tableState {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make(map[string]tableState, len(s.tables))
	for name, table := range s.tables {
		table.mu.RLock()
		states[name] = table.snapshotState()
		table.mu.RUnlock()
	}
	return states
}

func (s *Store) rewind(states map[string]tableState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, table := range s.tables {
		st, ok := states[name]
		if !ok {
			// Created inside the savepoint; drop it again.
			delete(s.tables, name)
			if table.file != nil {
				if err := table.file.remove(); err != nil {
					return err
				}
			}
			continue
		}
		table.mu.Lock()
		err := table.restoreState(st)
		table.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}
