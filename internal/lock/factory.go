package lock

import (
	"github.com/flexprice/invoicer/internal/config"
	domainlock "github.com/flexprice/invoicer/internal/domain/lock"
	"github.com/flexprice/invoicer/internal/dynamodb"
	ierr "github.com/flexprice/invoicer/internal/errors"
	dynamodbLock "github.com/flexprice/invoicer/internal/lock/dynamodb"
	"github.com/flexprice/invoicer/internal/lock/memory"
	postgresLock "github.com/flexprice/invoicer/internal/lock/postgres"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
)

// NewLocker returns the lock backend named in the configuration.
// The memory backend only serializes runs within one process.
func NewLocker(cfg *config.Configuration, db *postgres.DB, dynamo *dynamodb.Client, logger *logger.Logger) (domainlock.Locker, error) {
	switch cfg.Locker.Backend {
	case types.LockBackendMemory:
		logger.Warnw("using in-process locks, invoicing runs are not serialized across instances")
		return memory.NewLocker(logger), nil
	case types.LockBackendPostgres:
		return postgresLock.NewLocker(db, logger), nil
	case types.LockBackendDynamoDB:
		if dynamo == nil {
			return nil, ierr.NewError("dynamodb lock backend requires dynamodb").
				WithHint("Set dynamodb.in_use to true to use the dynamodb lock backend").
				Mark(ierr.ErrValidation)
		}
		return dynamodbLock.NewLocker(dynamo.DB(), cfg.DynamoDB.LeaseTableName, logger), nil
	default:
		return nil, ierr.NewErrorf("unknown lock backend %q", cfg.Locker.Backend).
			Mark(ierr.ErrValidation)
	}
}
