// Package storage provides the MariaDB implementations of the attendance
// repository interfaces. Every store runs against database.DBTX so the same
// code serves the pooled connection, the circuit-breaker wrapper and a
// transaction handle.
package storage

import (
	"database/sql"

	"github.com/hrcore/attendance-engine/internal/infrastructure/database"
	"github.com/hrcore/attendance-engine/internal/modules/attendance"
)

const dateLayout = "2006-01-02"

// NewRepositories wires the full repository bundle the attendance service
// needs. db is the query path (usually the BreakerDB wrapper) and txDB the
// raw pool used to open transactions.
func NewRepositories(db database.DBTX, txDB *sql.DB) attendance.Repositories {
	return attendance.Repositories{
		Employees: &EmployeeStore{db: db},
		Logs:      &LogStore{db: db},
		Summaries: &SummaryStore{db: db},
		Holidays:  &HolidayStore{db: db},
		HRLog:     &HRLogStore{db: db},
		Tx:        &TxRunner{db: txDB},
	}
}
