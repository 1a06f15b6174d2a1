package models

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// preparer is satisfied by both *sql.DB and *sql.Tx, so inserts can run
// inside a caller-managed transaction.
type preparer interface {
	Prepare(query string) (*sql.Stmt, error)
}

// InsertTransactions stores canonical transactions for a user. Rows whose
// content hash already exists for the user are counted as duplicates and
// skipped, so re-uploading a statement is harmless.
func InsertTransactions(db preparer, userID int64, txs []Transaction) (imported, duplicates int, err error) {
	stmt, err := db.Prepare(`
	INSERT OR IGNORE INTO transactions
		(user_id, symbol, date, kind, quantity, unit_price, commission, source, hash_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing transaction insert: %w", err)
	}
	defer stmt.Close()

	for i := range txs {
		t := &txs[i]
		if t.HashID == "" {
			t.HashID = t.ComputeHashID()
		}
		res, err := stmt.Exec(userID, t.Symbol, t.Date.String(), string(t.Kind),
			t.Quantity.String(), t.UnitPrice.String(), t.Commission.String(), t.Source, t.HashID)
		if err != nil {
			return imported, duplicates, fmt.Errorf("inserting transaction %s %s: %w", t.Symbol, t.Date, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return imported, duplicates, fmt.Errorf("checking insert result: %w", err)
		}
		if affected == 0 {
			duplicates++
		} else {
			imported++
		}
	}
	return imported, duplicates, nil
}

// GetTransactionsByUser loads a user's canonical transactions in
// chronological order (stable on insertion id for same-day rows).
func GetTransactionsByUser(db *sql.DB, userID int64) ([]Transaction, error) {
	rows, err := db.Query(`
	SELECT symbol, date, kind, quantity, unit_price, commission, source, hash_id
	FROM transactions
	WHERE user_id = ?
	ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		var dateStr, kindStr, quantityStr, priceStr, commStr string
		var source sql.NullString
		if err := rows.Scan(&t.Symbol, &dateStr, &kindStr, &quantityStr, &priceStr, &commStr, &source, &t.HashID); err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}
		if t.Date, err = ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("stored transaction has bad date %q: %w", dateStr, err)
		}
		if t.Kind, err = ParseTransactionKind(kindStr); err != nil {
			return nil, fmt.Errorf("stored transaction has bad kind %q: %w", kindStr, err)
		}
		if t.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("stored transaction has bad quantity %q: %w", quantityStr, err)
		}
		if t.UnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("stored transaction has bad unit price %q: %w", priceStr, err)
		}
		if t.Commission, err = decimal.NewFromString(commStr); err != nil {
			return nil, fmt.Errorf("stored transaction has bad commission %q: %w", commStr, err)
		}
		t.Source = source.String
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}
	return txs, nil
}

// DeleteTransactionsByUser removes all of a user's stored transactions and
// returns how many were deleted.
func DeleteTransactionsByUser(db *sql.DB, userID int64) (int64, error) {
	res, err := db.Exec(`DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting transactions for user %d: %w", userID, err)
	}
	return res.RowsAffected()
}

// CountTransactionsByUser reports how many transactions a user has stored.
func CountTransactionsByUser(db *sql.DB, userID int64) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting transactions for user %d: %w", userID, err)
	}
	return count, nil
}
