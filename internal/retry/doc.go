// Package retry repeats connection attempts that fail for transient reasons.
//
//	executor := retry.NewConnectExecutor(3, logger)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    pool, err = connector.Connect(ctx)
//	    return err
//	})
//
// ConnectErrorClassifier separates transient failures (server starting up,
// refused or reset sockets, exhausted connection slots) from permanent ones
// such as bad credentials. ExponentialBackoff spaces the attempts.
package retry
