package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	apperrors "roomdesk/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// illegalOperation is returned by standalone servers for any command that
// carries a transaction number.
const illegalOperation = 20

type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client     *mongo.Client
	standalone atomic.Bool
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{client: client}
}

// ExecuteTransaction runs fn in a session transaction. Calls made with a
// mongo.SessionContext join it. On a standalone server, which cannot run
// transactions, fn runs directly and later calls skip the session.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return fn(ctx)
	}
	if m.standalone.Load() {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})
	if err == nil {
		return nil
	}

	if transactionsUnsupported(err) {
		m.standalone.Store(true)
		return fn(ctx)
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return fmt.Errorf("transaction failed: %w", err)
}

func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == illegalOperation
}
