package saga

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dtm-labs/client/dtmcli"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const barrierSchema = `
CREATE SCHEMA IF NOT EXISTS dtm_barrier;
CREATE SEQUENCE IF NOT EXISTS dtm_barrier.barrier_seq;
CREATE TABLE IF NOT EXISTS dtm_barrier.barrier (
	id          BIGINT NOT NULL DEFAULT NEXTVAL('dtm_barrier.barrier_seq'),
	trans_type  VARCHAR(45) DEFAULT '',
	gid         VARCHAR(128) DEFAULT '',
	branch_id   VARCHAR(128) DEFAULT '',
	op          VARCHAR(45) DEFAULT '',
	barrier_id  VARCHAR(45) DEFAULT '',
	reason      VARCHAR(45) DEFAULT '',
	create_time TIMESTAMP(0) WITH TIME ZONE DEFAULT NULL,
	update_time TIMESTAMP(0) WITH TIME ZONE DEFAULT NULL,
	PRIMARY KEY (id),
	CONSTRAINT uniq_barrier UNIQUE (gid, branch_id, op, barrier_id)
);`

// Barrier guards branch calls with DTM branch barriers, which filter
// duplicate requests, empty compensations and compensations that arrive
// before their action. A nil *Barrier or one without a database runs the
// branch directly.
type Barrier struct {
	db *sql.DB
}

func NewBarrier(db *sql.DB) *Barrier {
	return &Barrier{db: db}
}

// OpenBarrierDB connects to the Postgres database holding the barrier table
// and creates the table when missing.
func OpenBarrierDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open barrier db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		zap.L().Info("⏳ waiting for barrier database", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(time.Second)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping barrier db: %w", err)
	}

	if _, err := db.ExecContext(ctx, barrierSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create barrier table: %w", err)
	}
	dtmcli.SetCurrentDBType("postgres")

	zap.L().Info("✅ barrier database ready")
	return db, nil
}

// Call runs fn inside the barrier described by the request query string.
func (b *Barrier) Call(c *gin.Context, fn func() error) error {
	if b == nil || b.db == nil {
		return fn()
	}

	bb, err := dtmcli.BarrierFromQuery(c.Request.URL.Query())
	if err != nil {
		return fmt.Errorf("invalid barrier query: %w", err)
	}
	return bb.CallWithDB(b.db, func(_ *sql.Tx) error {
		return fn()
	})
}
