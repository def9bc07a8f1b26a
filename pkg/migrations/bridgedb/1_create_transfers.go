package bridgedb

import (
	"context"
	"log"

	mghelper "github.com/norchain/bridge-middleware/pkg/pgutil/migrations"
	"github.com/norchain/bridge-middleware/pkg/transferstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating transfers table...")
		if err := mghelper.CreateSchema(ctx, db, &transferstore.TransferDao{}); err != nil {
			return err
		}
		// Create indexes
		if err := mghelper.CreateModelIndexes(ctx, db, &transferstore.TransferDao{}, "user_id", "status", "created_at"); err != nil {
			return err
		}
		// Partial unique index enforcing one transfer per (user, idempotency key).
		// Rows without a key are exempt, so it cannot use the model helpers.
		_, err := db.NewCreateIndex().
			Model(&transferstore.TransferDao{}).
			Index("idx_transfers_user_id_idempotency_key").
			Column("user_id", "idempotency_key").
			Unique().
			Where("idempotency_key IS NOT NULL").
			IfNotExists().
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping transfers table...")
		return mghelper.DropTables(ctx, db, &transferstore.TransferDao{})
	})
}
