// Package http provides HTTP handlers and middleware for the operations API.
//
// The router exposes the following endpoints:
//   - GET /jobs, POST /jobs, GET /jobs/{id}: job listing by window
//     (startDate, endDate, customerId, employeeId, status) and creation. Create
//     responses carry advisory staff warnings; conflicts answer 409 with the
//     override name that lets the caller resend.
//   - POST /jobs/{id}/reschedule {newDate,newEndDate,reason},
//     POST /jobs/{id}/assign {employeeId,sendNotification,payAmount},
//     POST /jobs/{id}/status {action}, GET /jobs/{id}/history.
//   - GET /availability?start=&durationMinutes=&end=&excludeJobId=: per employee
//     available/busy for a candidate window. known=false means the job fetch failed.
//   - GET /calendar?view=&date=, GET /calendar/timeline?date=, POST /calendar/drop.
//   - GET /employees, POST /employees, GET /employees/{id}.
//   - POST /bookings: flat wizard form in, 201 with the stored record out.
//     Rate limited per client IP. GET /bookings/{id}, GET /bookings/prices.
//   - POST /jobs/{id}/photos (multipart), GET /jobs/{id}/verification,
//     PATCH /photos/{id}, POST /photos/bulk-verify.
//   - GET /profitability?startDate=&endDate=&granularity=.
//   - GET /events: Server-Sent Events stream of jobs-changed notifications.
//   - GET /health, GET /metrics.
//
// Job prices, pay and profitability figures are integer pence; booking
// estimates are whole pounds. Errors use the body
// {"error","code","override","fields"}.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
