package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated SQLite store in a temporary directory.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	Employees persistence.EmployeeRepository
	Jobs      persistence.JobRepository
	Photos    persistence.PhotoRepository
	Bookings  persistence.BookingRepository
	Outbox    persistence.OutboxRepository

	cleanup func()
}

// Close releases the storage. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "ops.db")
	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:   storage,
		Employees: storage,
		Jobs:      storage,
		Photos:    storage,
		Bookings:  storage,
		Outbox:    storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedEmployees stores each fixture and fails the test on error.
func (h *SQLiteHarness) SeedEmployees(tb testing.TB, fixtures ...EmployeeFixture) []persistence.Employee {
	tb.Helper()
	out := make([]persistence.Employee, 0, len(fixtures))
	for _, f := range fixtures {
		employee := f.Persistence()
		if err := h.Employees.CreateEmployee(context.Background(), employee); err != nil {
			tb.Fatalf("seed employee %s: %v", f.ID, err)
		}
		out = append(out, employee)
	}
	return out
}

// SeedJobs stores each fixture with its assignments. Assigned employees
// must already be seeded.
func (h *SQLiteHarness) SeedJobs(tb testing.TB, fixtures ...JobFixture) []persistence.Job {
	tb.Helper()
	out := make([]persistence.Job, 0, len(fixtures))
	for _, f := range fixtures {
		job := f.Persistence()
		if err := h.Jobs.CreateJob(context.Background(), job); err != nil {
			tb.Fatalf("seed job %s: %v", f.ID, err)
		}
		out = append(out, job)
	}
	return out
}
