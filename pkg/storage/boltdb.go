package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cuemby/burrow/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketWorkerGroups = []byte("worker_groups")
	bucketRuns         = []byte("runs")
)

// DBFile is the database file name inside the data directory
const DBFile = "burrow.db"

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, DBFile)

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketWorkerGroups, bucketRuns} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Worker group operations
func (s *BoltStore) SaveWorkerGroup(group types.WorkerGroup) error {
	if group.Name == "" {
		return fmt.Errorf("worker group name is required")
	}
	return s.put(bucketWorkerGroups, group.Name, group)
}

func (s *BoltStore) GetWorkerGroup(name string) (*types.WorkerGroup, error) {
	var group types.WorkerGroup
	if err := s.get(bucketWorkerGroups, name, &group); err != nil {
		return nil, fmt.Errorf("worker group %s: %w", name, err)
	}
	return &group, nil
}

// ListWorkerGroups returns every stored group in key order
func (s *BoltStore) ListWorkerGroups() ([]types.WorkerGroup, error) {
	var groups []types.WorkerGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkerGroups)
		return b.ForEach(func(k, v []byte) error {
			var group types.WorkerGroup
			if err := json.Unmarshal(v, &group); err != nil {
				return err
			}
			groups = append(groups, group)
			return nil
		})
	})
	return groups, err
}

func (s *BoltStore) DeleteWorkerGroup(name string) error {
	return s.delete(bucketWorkerGroups, name)
}

// Run operations
func (s *BoltStore) SaveRun(run *types.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	return s.put(bucketRuns, run.ID, run)
}

func (s *BoltStore) GetRun(id string) (*types.RunRecord, error) {
	var run types.RunRecord
	if err := s.get(bucketRuns, id, &run); err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns every stored run, most recent first
func (s *BoltStore) ListRuns() ([]*types.RunRecord, error) {
	var runs []*types.RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		return b.ForEach(func(k, v []byte) error {
			var run types.RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func (s *BoltStore) DeleteRun(id string) error {
	return s.delete(bucketRuns, id)
}

func (s *BoltStore) put(bucket []byte, key string, value any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) get(bucket []byte, key string, out any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, out)
	})
}

func (s *BoltStore) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}
