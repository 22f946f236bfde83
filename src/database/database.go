package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	stdlog "log"
	"time"

	"github.com/Roklion/NFT-Extract/src/logger"
	"github.com/Roklion/NFT-Extract/src/models"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the sqlite database at databasePath and ensures the schema.
// The database caches retrieved transaction feeds so repeat runs skip the
// rate-limited explorer API.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateTransactionGroupsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS transaction_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wallet TEXT NOT NULL,
		txn_hash TEXT NOT NULL,
		payload TEXT NOT NULL,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(wallet, txn_hash)
	);

	CREATE TABLE IF NOT EXISTS prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL,
		fiat TEXT NOT NULL,
		price_date TEXT NOT NULL,
		price TEXT NOT NULL,
		UNIQUE(token, fiat, price_date)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTransactionGroupsTable backfills columns added after the first
// release onto databases created before them.
func migrateTransactionGroupsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='transaction_groups'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'transaction_groups' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'transaction_groups' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(transaction_groups)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'transaction_groups'", "error", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'transaction_groups'", "error", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'transaction_groups'", "error", err)
		}
		return
	}

	if _, ok := columnExists["fetched_at"]; !ok {
		_, err := DB.Exec("ALTER TABLE transaction_groups ADD COLUMN fetched_at TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'fetched_at' column to 'transaction_groups' table", "error", err)
		} else {
			logger.L.Info("Added 'fetched_at' column to 'transaction_groups' table")
		}
	}
}

// SaveTransactionGroups replaces the cached feed for a wallet with the given
// groups in one transaction.
func SaveTransactionGroups(wallet string, groups []models.TransactionGroup) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction_groups save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM transaction_groups WHERE wallet = ?", wallet); err != nil {
		return fmt.Errorf("clear cached groups for %s: %w", wallet, err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO transaction_groups (wallet, txn_hash, payload, fetched_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare transaction_groups insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, group := range groups {
		payload, err := json.Marshal(group)
		if err != nil {
			return fmt.Errorf("marshal group %s: %w", group.TxHash, err)
		}
		if _, err := stmt.Exec(wallet, group.TxHash, string(payload), now); err != nil {
			return fmt.Errorf("insert group %s: %w", group.TxHash, err)
		}
	}
	return tx.Commit()
}

// GetTransactionGroups loads the cached feed for a wallet. The second return
// is false when nothing is cached.
func GetTransactionGroups(wallet string) ([]models.TransactionGroup, bool, error) {
	rows, err := DB.Query(
		"SELECT payload FROM transaction_groups WHERE wallet = ? ORDER BY id", wallet)
	if err != nil {
		return nil, false, fmt.Errorf("query cached groups for %s: %w", wallet, err)
	}
	defer rows.Close()

	var groups []models.TransactionGroup
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, false, fmt.Errorf("scan cached group for %s: %w", wallet, err)
		}
		var group models.TransactionGroup
		if err := json.Unmarshal([]byte(payload), &group); err != nil {
			return nil, false, fmt.Errorf("unmarshal cached group for %s: %w", wallet, err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate cached groups for %s: %w", wallet, err)
	}
	return groups, len(groups) > 0, nil
}

// SavePrice upserts one historical price point.
func SavePrice(token, fiat, date, price string) error {
	_, err := DB.Exec(
		"INSERT INTO prices (token, fiat, price_date, price) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT(token, fiat, price_date) DO UPDATE SET price = excluded.price",
		token, fiat, date, price)
	if err != nil {
		return fmt.Errorf("save price %s/%s on %s: %w", token, fiat, date, err)
	}
	return nil
}

// GetPrice loads one historical price point; false when not stored.
func GetPrice(token, fiat, date string) (string, bool, error) {
	var price string
	err := DB.QueryRow(
		"SELECT price FROM prices WHERE token = ? AND fiat = ? AND price_date = ?",
		token, fiat, date).Scan(&price)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load price %s/%s on %s: %w", token, fiat, date, err)
	}
	return price, true, nil
}
