package database

import (
	"database/sql"
	stdlog "log"

	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	migrateUserTable()
	migrateTransactionsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		commission TEXT NOT NULL,
		source TEXT,
		hash_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		logger.L.Error("failed to create tables", "error", err)
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	logger.L.Info("Database tables ensured/created.")
}

func tableColumns(table string) (map[string]bool, bool) {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.L.Info("Table does not exist yet, no migration needed", "table", table)
			return nil, false
		}
		logger.L.Error("Error checking for table", "table", table, "error", err)
		return nil, false
	}

	rows, err := DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		logger.L.Error("Error querying table schema", "table", table, "error", err)
		return nil, false
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info", "table", table, "error", err)
			return nil, false
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		logger.L.Error("Error iterating over column info", "table", table, "error", err)
		return nil, false
	}
	return columnExists, true
}

func addColumn(table, column, definition string) {
	_, err := DB.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + definition)
	if err != nil {
		logger.L.Error("Error adding column", "table", table, "column", column, "error", err)
		return
	}
	logger.L.Info("Added column", "table", table, "column", column)
}

func migrateUserTable() {
	columnExists, ok := tableColumns("users")
	if !ok {
		return
	}

	if !columnExists["email"] {
		addColumn("users", "email", "TEXT NOT NULL DEFAULT ''")
	}
	if !columnExists["is_email_verified"] {
		addColumn("users", "is_email_verified", "BOOLEAN DEFAULT FALSE")
	}
	if !columnExists["email_verification_token"] {
		addColumn("users", "email_verification_token", "TEXT")
	}
	if !columnExists["email_verification_token_expires_at"] {
		addColumn("users", "email_verification_token_expires_at", "TIMESTAMP")
	}
	if !columnExists["password_reset_token"] {
		addColumn("users", "password_reset_token", "TEXT")
	}
	if !columnExists["password_reset_token_expires_at"] {
		addColumn("users", "password_reset_token_expires_at", "TIMESTAMP")
	}
	if !columnExists["auth_provider"] {
		addColumn("users", "auth_provider", "TEXT DEFAULT 'local'")
	}
	if !columnExists["created_at"] {
		addColumn("users", "created_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
	}
	if !columnExists["updated_at"] {
		addColumn("users", "updated_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
	}
}

func migrateTransactionsTable() {
	columnExists, ok := tableColumns("transactions")
	if !ok {
		return
	}

	if !columnExists["source"] {
		addColumn("transactions", "source", "TEXT")
	}
	if !columnExists["created_at"] {
		addColumn("transactions", "created_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
	}
}
