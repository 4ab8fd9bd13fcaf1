package sqlite

import "database/sql"

// Amounts are decimal strings: base-unit values exceed int64.
const schema = `
CREATE TABLE IF NOT EXISTS payment_requests (
    id TEXT PRIMARY KEY,
    payee_address TEXT NOT NULL,
    chain_id INTEGER NOT NULL,
    token_address TEXT NOT NULL,
    symbol TEXT NOT NULL DEFAULT '',
    decimals INTEGER NOT NULL,
    amount_base_units TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL,
    status TEXT NOT NULL,
    payer_hint TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    settled_tx_hash TEXT,
    settled_amount TEXT,
    settled_token TEXT,
    settled_chain_id INTEGER,
    settled_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_payment_requests_status_expires ON payment_requests(status, expires_at);
CREATE INDEX IF NOT EXISTS idx_payment_requests_status_updated ON payment_requests(status, updated_at);

-- one on-chain transfer settles at most one request
CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_requests_settled_tx
    ON payment_requests(settled_chain_id, lower(settled_tx_hash))
    WHERE settled_tx_hash IS NOT NULL;
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
