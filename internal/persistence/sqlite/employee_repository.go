package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/cleaning-ops/internal/persistence"
)

// EmployeeRepository implements persistence.EmployeeRepository using SQLite
type EmployeeRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEmployeeRepository creates a new SQLite employee repository
func NewEmployeeRepository(pool *ConnectionPool) *EmployeeRepository {
	return &EmployeeRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const employeeColumns = `id, name, email, pay_type, hourly_rate_pence, created_at, updated_at`

// CreateEmployee inserts a new employee.
func (r *EmployeeRepository) CreateEmployee(ctx context.Context, employee persistence.Employee) error {
	if strings.TrimSpace(employee.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO employees (`+employeeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		employee.ID,
		employee.Name,
		employee.Email,
		employee.PayType,
		employee.HourlyRatePence,
		formatTime(employee.CreatedAt),
		formatTime(employee.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetEmployee retrieves an employee by ID.
func (r *EmployeeRepository) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	employee, err := scanEmployee(row)
	if err != nil {
		return persistence.Employee{}, r.mapper.MapError(err)
	}
	return employee, nil
}

// ListEmployees returns all employees ordered by name.
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]persistence.Employee, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var employees []persistence.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return employees, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (persistence.Employee, error) {
	var employee persistence.Employee
	var createdAt, updatedAt string
	if err := row.Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.PayType,
		&employee.HourlyRatePence,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Employee{}, err
	}

	var err error
	if employee.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Employee{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if employee.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Employee{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return employee, nil
}

var _ persistence.EmployeeRepository = (*EmployeeRepository)(nil)
