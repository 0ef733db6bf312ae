package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/persistence"
)

// EmployeeService validates and stores staff records.
type EmployeeService struct {
	employees   persistence.EmployeeRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEmployeeService constructs an employee service with the provided dependencies.
func NewEmployeeService(employees persistence.EmployeeRepository, idGenerator func() string, now func() time.Time) *EmployeeService {
	return NewEmployeeServiceWithLogger(employees, idGenerator, now, nil)
}

// NewEmployeeServiceWithLogger constructs an employee service with a specified logger.
func NewEmployeeServiceWithLogger(employees persistence.EmployeeRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EmployeeService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EmployeeService{employees: employees, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *EmployeeService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EmployeeService", operation, attrs...)
}

// CreateEmployee validates input and persists a new employee.
func (s *EmployeeService) CreateEmployee(ctx context.Context, input EmployeeInput) (employee persistence.Employee, err error) {
	if s == nil {
		err = fmt.Errorf("EmployeeService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateEmployee")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create employee", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("employee_id", employee.ID).InfoContext(ctx, "employee created")
	}()

	if vErr := validateEmployeeInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	candidate := persistence.Employee{
		ID:              s.idGenerator(),
		Name:            strings.TrimSpace(input.Name),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		PayType:         input.PayType,
		HourlyRatePence: input.HourlyRatePence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if candidate.PayType == "" {
		candidate.PayType = persistence.PayTypeHourly
	}

	if s.employees == nil {
		employee = candidate
		return
	}
	if err = s.employees.CreateEmployee(ctx, candidate); err != nil {
		err = mapRepoError(err, "payType", "pay type is invalid")
		return
	}
	employee = candidate
	return
}

// GetEmployee returns one employee.
func (s *EmployeeService) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	if s == nil || s.employees == nil {
		return persistence.Employee{}, fmt.Errorf("employee repository not configured")
	}
	employee, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return persistence.Employee{}, mapRepoError(err, "id", "invalid employee id")
	}
	return employee, nil
}

// ListEmployees returns every employee ordered by name.
func (s *EmployeeService) ListEmployees(ctx context.Context) (employees []persistence.Employee, err error) {
	if s == nil || s.employees == nil {
		err = fmt.Errorf("employee repository not configured")
		return
	}
	logger := s.loggerWith(ctx, "ListEmployees")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list employees", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(employees)).DebugContext(ctx, "employees listed")
	}()

	employees, err = s.employees.ListEmployees(ctx)
	if err != nil && isNotFoundError(err) {
		return nil, nil
	}
	return
}

func validateEmployeeInput(input EmployeeInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is invalid")
	}
	switch input.PayType {
	case "", persistence.PayTypeHourly, persistence.PayTypePerJob, persistence.PayTypeSalaried:
	default:
		vErr.add("payType", "pay type must be hourly, per_job or salaried")
	}
	if input.HourlyRatePence < 0 {
		vErr.add("hourlyRate", "hourly rate must not be negative")
	}
	if (input.PayType == "" || input.PayType == persistence.PayTypeHourly) && input.HourlyRatePence == 0 {
		vErr.add("hourlyRate", "hourly staff need an hourly rate")
	}
	return vErr
}
