package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/persistence"
)

type employeeService interface {
	CreateEmployee(ctx context.Context, input application.EmployeeInput) (persistence.Employee, error)
	GetEmployee(ctx context.Context, id string) (persistence.Employee, error)
	ListEmployees(ctx context.Context) ([]persistence.Employee, error)
}

type EmployeeHandler struct {
	service   employeeService
	responder responder
}

func NewEmployeeHandler(service employeeService, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{service: service, responder: newResponder(logger)}
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req employeeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	employee, err := h.service.CreateEmployee(r.Context(), application.EmployeeInput{
		Name:            req.Name,
		Email:           req.Email,
		PayType:         req.PayType,
		HourlyRatePence: req.HourlyRate,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEmployeeDTO(employee))
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	employee, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEmployeeDTO(employee))
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]employeeDTO, 0, len(employees))
	for _, e := range employees {
		out = append(out, toEmployeeDTO(e))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEmployeesResponse{Employees: out})
}

type employeeDTO struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PayType    string `json:"payType"`
	HourlyRate int64  `json:"hourlyRate"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

type listEmployeesResponse struct {
	Employees []employeeDTO `json:"employees"`
}

func toEmployeeDTO(e persistence.Employee) employeeDTO {
	return employeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		PayType:    e.PayType,
		HourlyRate: e.HourlyRatePence,
		CreatedAt:  formatTime(e.CreatedAt),
	}
}
