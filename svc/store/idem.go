package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"gitpaste/pkg/domain"
)

// Idempotency keys are arbitrary caller strings, so records are filed
// under the hex SHA-256 of the key. Records are written once per key
// after a successful create and never updated; failed creates must not
// touch the ledger.

func idempotencyFile(dir, key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dir, hex.EncodeToString(sum[:])+".json")
}

func ReadIdempotencyRecord(dir, key string) (*domain.IdempotencyRecord, error) {
	data, err := os.ReadFile(idempotencyFile(dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read idempotency record")
	}
	var rec domain.IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "parse idempotency record")
	}
	return &rec, nil
}

func WriteIdempotencyRecord(dir, key string, rec *domain.IdempotencyRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create idempotency dir")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "serialize idempotency record")
	}
	if err := os.WriteFile(idempotencyFile(dir, key), data, 0o644); err != nil {
		return errors.Wrap(err, "write idempotency record")
	}
	return nil
}
