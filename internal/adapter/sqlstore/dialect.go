package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
)

// insertStyle is how a dialect hands back the generated id.
type insertStyle int

const (
	returningClause insertStyle = iota // INSERT ... RETURNING id
	outputClause                       // INSERT ... OUTPUT INSERTED.id VALUES ...
	lastInsertID                       // Result.LastInsertId
)

// Dialect captures the SQL differences between the database/sql backends.
type Dialect struct {
	Name         string
	insert       insertStyle
	numbered     bool   // @p1, @p2 ... instead of ?
	tableHint    string // appended to the table name in the locking select
	lockSuffix   string // appended to the locking select
	limitByFetch bool   // OFFSET/FETCH instead of LIMIT
	constraint   func(error) bool
}

var (
	SQLite = Dialect{
		Name:   "sqlite",
		insert: returningClause,
		constraint: func(err error) bool {
			var e *sqlite.Error
			// SQLITE_CONSTRAINT and its extended codes.
			return errors.As(err, &e) && e.Code()&0xff == 19
		},
	}
	SQLServer = Dialect{
		Name:         "sqlserver",
		insert:       outputClause,
		numbered:     true,
		tableHint:    " WITH (UPDLOCK, HOLDLOCK)",
		limitByFetch: true,
		constraint: func(err error) bool {
			var e mssql.Error
			if !errors.As(err, &e) {
				return false
			}
			switch e.Number {
			case 515, 547, 2601, 2627:
				return true
			}
			return false
		},
	}
	MySQL = Dialect{
		Name:       "mysql",
		insert:     lastInsertID,
		lockSuffix: " FOR UPDATE",
		constraint: func(err error) bool {
			var e *mysql.MySQLError
			if !errors.As(err, &e) {
				return false
			}
			switch e.Number {
			case 1048, 1062, 1406, 1452:
				return true
			}
			return false
		},
	}
)

// DialectFor returns the dialect for a DB_DRIVER value.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case SQLite.Name:
		return SQLite, nil
	case SQLServer.Name:
		return SQLServer, nil
	case MySQL.Name:
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) limit(query string) string {
	if d.limitByFetch {
		return query + " OFFSET 0 ROWS FETCH NEXT ? ROWS ONLY"
	}
	return query + " LIMIT ?"
}
