package sqlstate

import "fmt"

// StateTable holds one row per persisted table: the table name in bucket and
// its JSON encoded header and rows in payload.
const StateTable = "inventario_state"

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	Name        string
	DriverName  string
	CreateTable string
	Select      string
	Upsert      string
}

// SQLite stores payloads as BLOBs through the pure Go modernc driver.
var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	CreateTable: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`, StateTable),
	Select: fmt.Sprintf(`SELECT payload FROM %s WHERE bucket = ?`, StateTable),
	Upsert: fmt.Sprintf(`INSERT INTO %s(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, StateTable),
}

// Postgres stores payloads as JSONB through pgx.
var Postgres = Dialect{
	Name:       "postgres",
	DriverName: "pgx",
	CreateTable: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`, StateTable),
	Select: fmt.Sprintf(`SELECT payload FROM %s WHERE bucket = $1`, StateTable),
	Upsert: fmt.Sprintf(`INSERT INTO %s(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, StateTable),
}

// MySQL stores payloads as LONGTEXT through go-sql-driver.
var MySQL = Dialect{
	Name:       "mysql",
	DriverName: "mysql",
	CreateTable: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		bucket VARCHAR(64) NOT NULL PRIMARY KEY,
		payload LONGTEXT NOT NULL
	)`, StateTable),
	Select: fmt.Sprintf(`SELECT payload FROM %s WHERE bucket = ?`, StateTable),
	Upsert: fmt.Sprintf(`INSERT INTO %s(bucket,payload) VALUES(?,?) ON DUPLICATE KEY UPDATE payload=VALUES(payload)`, StateTable),
}
