// Package booking implements the five step public booking wizard and its
// price estimate.
package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format of preferred and alternative dates.
const DateLayout = "2006-01-02"

// Form is the flat booking payload collected by the wizard.
type Form struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Address           string `json:"address"`
	City              string `json:"city"`
	Postcode          string `json:"postcode"`
	ServiceType       string `json:"serviceType"`
	PropertyType      string `json:"propertyType"`
	Bedrooms          int    `json:"bedrooms"`
	Bathrooms         int    `json:"bathrooms"`
	PreferredDate     string `json:"preferredDate,omitempty"`
	AlternativeDate   string `json:"alternativeDate,omitempty"`
	TimeSlot          string `json:"timeSlot"`
	ServiceProviderID string `json:"serviceProviderId"`
	Notes             string `json:"notes,omitempty"`
	EstimatedPrice    int64  `json:"estimatedPrice"`
}

// IncompleteError lists the required fields missing for a step.
type IncompleteError struct {
	Step   Step
	Fields map[string]string
}

func (e *IncompleteError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("booking: %s incomplete: %s", e.Step, strings.Join(names, ", "))
}

// AsIncomplete unwraps an IncompleteError.
func AsIncomplete(err error) (*IncompleteError, bool) {
	var target *IncompleteError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

type requirement struct {
	field string
	value func(Form) string
}

var stepRequirements = map[Step][]requirement{
	StepContact: {
		{"firstName", func(f Form) string { return f.FirstName }},
		{"lastName", func(f Form) string { return f.LastName }},
		{"email", func(f Form) string { return f.Email }},
		{"phone", func(f Form) string { return f.Phone }},
	},
	StepLocation: {
		{"address", func(f Form) string { return f.Address }},
		{"city", func(f Form) string { return f.City }},
		{"postcode", func(f Form) string { return f.Postcode }},
	},
	StepServiceDetails: {
		{"serviceType", func(f Form) string { return f.ServiceType }},
		{"propertyType", func(f Form) string { return f.PropertyType }},
	},
	StepSchedule: {
		{"preferredDate", func(f Form) string { return f.PreferredDate }},
		{"timeSlot", func(f Form) string { return f.TimeSlot }},
	},
	StepReview: {
		{"serviceProviderId", func(f Form) string { return f.ServiceProviderID }},
	},
}

// CheckStep applies the required-field predicate of step.
func CheckStep(step Step, form Form) error {
	missing := map[string]string{}
	for _, req := range stepRequirements[step] {
		if strings.TrimSpace(req.value(form)) == "" {
			missing[req.field] = "required"
		}
	}
	if len(missing) > 0 {
		return &IncompleteError{Step: step, Fields: missing}
	}
	return nil
}

// ValidateAll re-applies every step predicate together with value checks
// that only make sense server side.
func ValidateAll(form Form, prices PriceList) error {
	fields := map[string]string{}
	for step := StepContact; step <= StepReview; step++ {
		if err := CheckStep(step, form); err != nil {
			incomplete, _ := AsIncomplete(err)
			for k, v := range incomplete.Fields {
				fields[k] = v
			}
		}
	}
	if form.Email != "" && !strings.Contains(form.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if form.ServiceType != "" && prices != nil {
		if _, ok := prices[form.ServiceType]; !ok {
			fields["serviceType"] = "unknown service type"
		}
	}
	if form.Bedrooms < 0 {
		fields["bedrooms"] = "must not be negative"
	}
	if form.Bathrooms < 0 {
		fields["bathrooms"] = "must not be negative"
	}
	for name, value := range map[string]string{"preferredDate": form.PreferredDate, "alternativeDate": form.AlternativeDate} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, value); err != nil {
			fields[name] = "must be a YYYY-MM-DD date"
		}
	}
	if len(fields) > 0 {
		return &IncompleteError{Step: StepReview, Fields: fields}
	}
	return nil
}
