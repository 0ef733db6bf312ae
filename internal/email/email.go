// Package email renders transactional messages to HTML and plaintext and
// hands them to a Mailer.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*
var templateFS embed.FS

// ErrNoRecipient is returned when a message has no address.
var ErrNoRecipient = errors.New("email: recipient required")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// JobAssigned notifies an employee of a new assignment.
type JobAssigned struct {
	To           string
	EmployeeName string
	JobTitle     string
	Address      string
	Start        time.Time
	End          time.Time
	PayAmount    int64
}

// JobRescheduled notifies a customer or employee that a job moved.
type JobRescheduled struct {
	To            string
	RecipientName string
	JobTitle      string
	OldStart      time.Time
	NewStart      time.Time
	NewEnd        time.Time
	Reason        string
}

// BookingReceived acknowledges a public booking.
type BookingReceived struct {
	To            string
	CustomerName  string
	Reference     string
	ServiceType   string
	PreferredDate string
	TimeSlot      string
	EstimatePence int64
}

// Renderer renders the typed parameter objects. Times are shown in loc.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	funcs := map[string]any{
		"when":  func(t time.Time) string { return t.In(loc).Format("Mon 2 Jan 2006 15:04") },
		"clock": func(t time.Time) string { return t.In(loc).Format("15:04") },
		"money": FormatPence,
	}
	html, err := htmltemplate.New("html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.New("text").Funcs(funcs).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

// FormatPence renders minor units as pounds with thousands separators.
// The split into pounds and pence stays in integers.
func FormatPence(pence int64) string {
	sign := ""
	magnitude := uint64(pence)
	if pence < 0 {
		sign = "-"
		magnitude = -magnitude
	}
	pounds, rest := magnitude/100, magnitude%100
	return fmt.Sprintf("%s£%s.%02d", sign, humanize.Comma(int64(pounds)), rest)
}

// JobAssigned renders an assignment notice.
func (r *Renderer) JobAssigned(p JobAssigned) (Message, error) {
	return r.render(p.To, "New job: "+p.JobTitle, "job_assigned", p)
}

// JobRescheduled renders a reschedule notice.
func (r *Renderer) JobRescheduled(p JobRescheduled) (Message, error) {
	return r.render(p.To, "Job moved: "+p.JobTitle, "job_rescheduled", p)
}

// BookingReceived renders a booking acknowledgement.
func (r *Renderer) BookingReceived(p BookingReceived) (Message, error) {
	return r.render(p.To, "Booking received: "+p.Reference, "booking_received", p)
}

func (r *Renderer) render(to, subject, name string, data any) (Message, error) {
	if strings.TrimSpace(to) == "" {
		return Message{}, ErrNoRecipient
	}
	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
