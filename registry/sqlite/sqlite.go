// Package sqlite provides a SQLite-backed registry.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite" // pure Go driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

var _ registry.Store = (*Store)(nil)

// Store keeps payment requests in a single SQLite file. Status transitions
// are conditional updates, so the compare-and-swap holds across processes
// sharing the file.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and runs migrations.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; concurrent callers queue on the pool instead of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, req *types.PaymentRequest) error {
	if req.AmountBaseUnits == nil {
		return types.NewError(types.ErrCodeInvalidAmount, "amount is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_requests (id, payee_address, chain_id, token_address, symbol, decimals,
		 amount_base_units, message, mode, status, payer_hint, created_at, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.PayeeAddress, req.ChainID, req.TokenAddress, req.Symbol, int(req.Decimals),
		req.AmountBaseUnits.String(), req.Message, string(req.Mode), string(req.Status), req.PayerHint,
		req.CreatedAt.UnixNano(), req.ExpiresAt.UnixNano(), req.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment request: %w", err)
	}
	return nil
}

const selectColumns = `id, payee_address, chain_id, token_address, symbol, decimals, amount_base_units,
	message, mode, status, payer_hint, created_at, expires_at, updated_at,
	settled_tx_hash, settled_amount, settled_token, settled_chain_id, settled_at`

func (s *Store) Get(ctx context.Context, id string) (*types.PaymentRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM payment_requests WHERE id = ?`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.ErrCodeNotFound, "payment request not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	return req, nil
}

func (s *Store) Transition(
	ctx context.Context,
	id string,
	from, to types.Status,
	settlement *types.Settlement,
	at time.Time,
) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if to == types.StatusSettled && settlement != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE payment_requests SET status = ?, updated_at = ?,
			 settled_tx_hash = ?, settled_amount = ?, settled_token = ?, settled_chain_id = ?, settled_at = ?
			 WHERE id = ? AND status = ?`,
			string(to), at.UnixNano(),
			settlement.TxHash, settlement.AmountBaseUnits.String(), settlement.Token, settlement.ChainID,
			settlement.SettledAt.UnixNano(),
			id, string(from),
		)
		if isUniqueViolation(err) {
			return false, s.txReused(ctx, settlement)
		}
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE payment_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), at.UnixNano(), id, string(from),
		)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update payment request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM payment_requests WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, types.NewError(types.ErrCodeNotFound, "payment request not found: %s", id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get payment request: %w", err)
	}
	return false, nil
}

// txReused reports which request already holds the settlement's transfer.
func (s *Store) txReused(ctx context.Context, settlement *types.Settlement) error {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM payment_requests WHERE settled_chain_id = ? AND lower(settled_tx_hash) = lower(?)`,
		settlement.ChainID, settlement.TxHash,
	).Scan(&owner)
	if err != nil {
		return fmt.Errorf("failed to look up settled transaction: %w", err)
	}
	return types.NewTxReusedError(settlement, owner)
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM payment_requests WHERE status = ? AND expires_at < ? ORDER BY id LIMIT ?`,
		string(types.StatusPending), now.UnixNano(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired payment requests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan payment request id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payment_requests WHERE status IN (?, ?, ?) AND updated_at < ?`,
		string(types.StatusSettled), string(types.StatusCancelled), string(types.StatusExpired),
		cutoff.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge payment requests: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*types.PaymentRequest, error) {
	var (
		req                          types.PaymentRequest
		decimals                     int
		amount, mode, status         string
		created, expires, updated    int64
		txHash, settledAmt, settledT sql.NullString
		settledChain, settledAt      sql.NullInt64
	)

	err := row.Scan(&req.ID, &req.PayeeAddress, &req.ChainID, &req.TokenAddress, &req.Symbol, &decimals,
		&amount, &req.Message, &mode, &status, &req.PayerHint, &created, &expires, &updated,
		&txHash, &settledAmt, &settledT, &settledChain, &settledAt)
	if err != nil {
		return nil, err
	}

	req.Decimals = uint8(decimals)
	req.Mode = types.Mode(mode)
	req.Status = types.Status(status)
	req.CreatedAt = fromNanos(created)
	req.ExpiresAt = fromNanos(expires)
	req.UpdatedAt = fromNanos(updated)

	if req.AmountBaseUnits, err = parseBig(amount); err != nil {
		return nil, err
	}

	if txHash.Valid {
		s := &types.Settlement{
			TxHash:    txHash.String,
			Token:     settledT.String,
			ChainID:   settledChain.Int64,
			SettledAt: fromNanos(settledAt.Int64),
		}
		if s.AmountBaseUnits, err = parseBig(settledAmt.String); err != nil {
			return nil, err
		}
		req.Settlement = s
	}

	return &req, nil
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("corrupt amount column %q", s)
	}
	return v, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
