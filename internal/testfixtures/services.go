package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/persistence"
)

// ServiceFactory builds application services on a shared fixture clock and
// id sequence.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

func (f *ServiceFactory) NewEmployeeService(employees persistence.EmployeeRepository) *application.EmployeeService {
	return application.NewEmployeeServiceWithLogger(employees, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewAvailabilityService uses the factory clock for cache expiry.
func (f *ServiceFactory) NewAvailabilityService(jobs application.JobLister, employees application.EmployeeDirectory, cacheTTL time.Duration) *application.AvailabilityService {
	return application.NewAvailabilityServiceWithLogger(jobs, employees, cacheTTL, f.Clock.NowFunc(), nil, f.Logger)
}

// NewJobService fills IDGenerator, Now and Logger from the factory when the
// caller leaves them unset.
func (f *ServiceFactory) NewJobService(deps application.JobServiceDeps) *application.JobService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Logger == nil {
		deps.Logger = f.Logger
	}
	return application.NewJobService(deps)
}
