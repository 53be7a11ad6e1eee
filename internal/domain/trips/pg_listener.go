package trips

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type poolListener struct {
	conn *pgx.Conn
}

// PoolListener takes a dedicated connection out of pool and LISTENs on channel.
// The connection never goes back to the pool.
func PoolListener(pool *pgxpool.Pool, channel string) ListenFunc {
	return func(ctx context.Context) (Listener, error) {
		pc, err := pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
		}
		conn := pc.Hijack()
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			_ = conn.Close(ctx)
			return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
		return &poolListener{conn: conn}, nil
	}
}

func (l *poolListener) Wait(ctx context.Context) (string, error) {
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (l *poolListener) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}
