package duplex

import (
	"context"

	"github.com/google/uuid"
)

// RunTransaction executes the whole batch atomically against exactly one
// connection: primary when opts.WriteToPrimary is set, main otherwise.
// There is no cross-connection transaction; per-request routing flags are
// ignored for routing and stripped from the argument bags.
//
// opts.Timeout, when positive, bounds the whole transaction through the
// context deadline. opts.BeginOptions travels through to the connection
// unmodified.
//
// On failure the transaction is rolled back, a diagnostic is logged with
// the underlying message, and the original error is returned. There is no
// automatic retry.
func (db *DB) RunTransaction(ctx context.Context, reqs []Request, opts TxOptions) ([]*Response, error) {
	if db.state.get() == closedState {
		return nil, ErrClosed
	}
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}

	role := RoleMain
	if opts.WriteToPrimary {
		role = RolePrimary
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	txID := uuid.NewString()
	tx, err := db.conn(role).Begin(ctx, opts.BeginOptions)
	if err != nil {
		db.reportTxFailure(txID, role, err)
		return nil, err
	}

	responses := make([]*Response, 0, len(reqs))
	for _, req := range reqs {
		fwd := req
		if args := req.Args(); args != nil {
			if _, ok := args[RoutingKey]; ok {
				fwd = forwarded{Request: req, args: cloneWithout(args, RoutingKey)}
			}
		}
		resp, doErr := tx.Do(ctx, fwd)
		if doErr != nil {
			_ = tx.Rollback(ctx)
			db.reportTxFailure(txID, role, doErr)
			return nil, doErr
		}
		responses = append(responses, resp)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		db.reportTxFailure(txID, role, commitErr)
		return nil, commitErr
	}
	return responses, nil
}

func (db *DB) reportTxFailure(txID string, role Role, err error) {
	db.log.Report(LogEvent{
		Level:   LogError,
		Message: "transaction failed",
		Fields: map[string]interface{}{
			"tx_id":      txID,
			"connection": role.String(),
			"error":      err.Error(),
		},
	})
}
