package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Driver names as understood by the store.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DriverName returns the normalized driver, defaulting to mysql.
func (d Database) DriverName() string {
	switch strings.ToLower(strings.TrimSpace(d.Driver)) {
	case "", DriverMySQL:
		return DriverMySQL
	case DriverPostgres, "postgresql", "pgx":
		return DriverPostgres
	case DriverSQLite, "sqlite3":
		return DriverSQLite
	}
	return strings.ToLower(strings.TrimSpace(d.Driver))
}

// Valid reports whether enough parameters are set to attempt a connection.
func (d Database) Valid() bool {
	switch d.DriverName() {
	case DriverSQLite:
		return d.Path != ""
	case DriverMySQL, DriverPostgres:
		return d.Host != "" && d.User != "" && d.Name != ""
	}
	return false
}

func (d Database) port(def int) string {
	if d.Port > 0 {
		return strconv.Itoa(d.Port)
	}
	return strconv.Itoa(def)
}

// DSN builds the data source name for the configured driver.
func (d Database) DSN() (string, error) {
	if !d.Valid() {
		return "", fmt.Errorf("database %q: incomplete connection settings", d.DriverName())
	}
	switch d.DriverName() {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, d.port(3306))
		mc.User = d.User
		mc.Passwd = d.Password
		mc.DBName = d.Name
		mc.Timeout = 5 * time.Second
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   net.JoinHostPort(d.Host, d.port(5432)),
			Path:   "/" + d.Name,
		}
		q := url.Values{}
		sslmode := d.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		q.Set("sslmode", sslmode)
		q.Set("connect_timeout", "5")
		u.RawQuery = q.Encode()
		return u.String(), nil
	case DriverSQLite:
		return d.Path, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", d.Driver)
}
