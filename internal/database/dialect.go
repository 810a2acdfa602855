package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// Config is the connection pool configuration.
type Config = registry.InternalDatabaseConfig

// Dialect renders the portable statement form (`?` placeholders and
// backtick-quoted identifiers) into a driver's native syntax.
type Dialect struct {
	name       string
	driverName string
	numbered   bool
	quote      byte
}

var (
	// MySQL is the dialect of github.com/go-sql-driver/mysql.
	MySQL = Dialect{name: registry.DriverMySQL, driverName: "mysql", quote: '`'}

	// Postgres is the dialect of github.com/lib/pq.
	Postgres = Dialect{name: registry.DriverPostgres, driverName: "postgres", numbered: true, quote: '"'}

	// SQLite is the dialect of modernc.org/sqlite.
	SQLite = Dialect{name: registry.DriverSQLite, driverName: "sqlite", quote: '`'}
)

// DialectFor returns the dialect registered for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case registry.DriverMySQL:
		return MySQL, nil
	case registry.DriverPostgres:
		return Postgres, nil
	case registry.DriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// Name returns the configuration name of the dialect.
func (d Dialect) Name() string { return d.name }

// DriverName returns the database/sql driver name.
func (d Dialect) DriverName() string { return d.driverName }

// DSN builds the driver connection string for cfg.
func (d Dialect) DSN(cfg Config) string {
	switch d.name {
	case registry.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Database
		mc.Timeout = cfg.ConnectionTimeout
		mc.Params = map[string]string{"autocommit": boolParam(cfg.Autocommit)}
		if cfg.Charset != "" {
			mc.Params["charset"] = cfg.Charset
		}
		return mc.FormatDSN()
	case registry.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:   "/" + cfg.Database,
		}
		q := url.Values{}
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		q.Set("sslmode", sslMode)
		if cfg.ConnectionTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectionTimeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return u.String()
	default:
		return "file:" + cfg.Database + "?_pragma=busy_timeout(5000)"
	}
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Rebind translates `?` placeholders and backtick quotes into the dialect's
// native form. Single-quoted literals are copied untouched.
func (d Dialect) Rebind(stmt string) string {
	if !d.numbered && d.quote == '`' {
		return stmt
	}

	var b strings.Builder
	b.Grow(len(stmt) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case inLiteral:
			b.WriteByte(c)
		case c == '?' && d.numbered:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		case c == '`':
			b.WriteByte(d.quote)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// LimitClause renders a portable limit clause and its arguments.
// A negative offset means no offset.
func (d Dialect) LimitClause(offset, count int) (string, []interface{}) {
	if offset < 0 {
		return "limit ?", []interface{}{count}
	}
	if d.numbered {
		return "limit ? offset ?", []interface{}{count, offset}
	}
	return "limit ?, ?", []interface{}{offset, count}
}
