// Package runs keeps a local ledger of completed pipeline runs.
package runs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"golang.org/x/exp/slices"

	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/types"
)

const DefaultLedgerPath = "artifacts/.runs"

// Ledger stores one RunRecord per run timestamp in a local leveldb
// database.
type Ledger struct {
	db *leveldb.DB
}

func Open(path string) (*Ledger, error) {
	if path == "" {
		path = DefaultLedgerPath
	}
	if basepath := filepath.Dir(path); basepath != "" {
		if err := os.MkdirAll(basepath, os.ModePerm); err != nil {
			return nil, errors.NewStorageFailedError(err)
		}
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) Record(ctx context.Context, record *types.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if err := l.db.Put([]byte(record.Timestamp), data, nil); err != nil {
		return errors.NewStorageFailedError(err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, timestamp string) (*types.RunRecord, error) {
	data, err := l.db.Get([]byte(timestamp), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, errors.NewFileNotFoundError("run " + timestamp)
		}
		return nil, errors.NewStorageFailedError(err)
	}
	record := &types.RunRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, errors.NewInternalError(err)
	}
	return record, nil
}

// List returns all recorded runs, most recent first.
func (l *Ledger) List(ctx context.Context) ([]types.RunRecord, error) {
	var result []types.RunRecord
	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		record := types.RunRecord{}
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return nil, errors.NewInternalError(err)
		}
		result = append(result, record)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	slices.SortFunc(result, func(a, b types.RunRecord) bool {
		return a.Timestamp > b.Timestamp
	})
	return result, nil
}
