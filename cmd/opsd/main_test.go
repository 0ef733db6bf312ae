package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
	"github.com/example/cleaning-ops/internal/client"
	"github.com/example/cleaning-ops/internal/config"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/persistence/sqlite"
	"github.com/example/cleaning-ops/internal/testfixtures"
)

func testConfig() config.Config {
	return config.Config{
		HTTPPort:             8080,
		Timezone:             time.UTC,
		HourHeight:           72,
		AvailabilityCacheTTL: time.Minute,
		EventPollInterval:    time.Second,
		ServiceName:          "cleaning-ops-test",
		LogLevel:             "info",
		LogFormat:            "json",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	return testfixtures.NewSQLiteHarness(t).Storage
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestBuildAppServesWiredAPI(t *testing.T) {
	storage := openStorage(t)
	a, err := buildApp(testConfig(), storage, nil, discardLogger())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.startWatch(ctx)
	defer a.close()

	server := httptest.NewServer(a.handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}

	var employee struct {
		ID string `json:"id"`
	}
	status := postJSON(t, server.URL+"/employees", map[string]any{
		"name": "Ada Lovelace", "email": "ada@example.com", "payType": "hourly", "hourlyRate": 1500,
	}, &employee)
	if status != http.StatusCreated || employee.ID == "" {
		t.Fatalf("create employee: status %d id %q", status, employee.ID)
	}

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	api := client.New(server.URL)
	query := client.AvailabilityQuery{Start: start, DurationMinutes: 60, EmployeeIDs: []string{employee.ID}}

	before, err := api.Availability(context.Background(), query)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !before.Known || len(before.Employees) != 1 || before.Employees[0].Status != "available" {
		t.Fatalf("expected available before booking, got %+v", before)
	}

	var created client.JobResult
	status = postJSON(t, server.URL+"/jobs", map[string]any{
		"customerName":    "Grace Hopper",
		"address":         "1 High Street",
		"scheduledFor":    start.Format(time.RFC3339),
		"durationMinutes": 120,
		"price":           15000,
		"employeeIds":     []string{employee.ID},
	}, &created)
	if status != http.StatusCreated || created.Job.Status != "scheduled" {
		t.Fatalf("create job: status %d job %+v", status, created.Job)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		after, err := api.Availability(context.Background(), query)
		if err != nil {
			t.Fatalf("availability: %v", err)
		}
		if len(after.Employees) == 1 && after.Employees[0].Status == "busy" {
			if len(after.Employees[0].ConflictingJobIDs) != 1 || after.Employees[0].ConflictingJobIDs[0] != created.Job.ID {
				t.Fatalf("unexpected conflicts %+v", after.Employees[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected cache invalidation to surface the new job, got %+v", after)
		}
		time.Sleep(20 * time.Millisecond)
	}

	day := start.Format("2006-01-02")
	view, err := api.CalendarView(context.Background(), "day", day)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(view.Days) != 1 || len(view.Days[0].Jobs) != 1 || view.Days[0].Jobs[0].ID != created.Job.ID {
		t.Fatalf("unexpected calendar %+v", view)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected /metrics to be absent without a handler, got %d", resp.StatusCode)
	}
}

func TestBuildAppReportsSeededProfitability(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ava := testfixtures.NewEmployeeFixture(testfixtures.WithPay(persistence.PayTypeHourly, 1200))
	h.SeedEmployees(t, ava)

	day := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	h.SeedJobs(t,
		testfixtures.NewJobFixture(
			testfixtures.WithSchedule(day, 120),
			testfixtures.WithStatus(availability.JobStatusCompleted),
			testfixtures.WithPrice(9000),
			testfixtures.AssignedTo(ava.ID),
		),
		testfixtures.NewJobFixture(testfixtures.WithSchedule(day.Add(4*time.Hour), 60)),
	)

	a, err := buildApp(testConfig(), h.Storage, nil, discardLogger())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.close()
	server := httptest.NewServer(a.handler)
	defer server.Close()

	trend, err := client.New(server.URL).Trend(context.Background(), "2026-03-09", "2026-03-15", "day")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Points) != 7 {
		t.Fatalf("expected 7 daily points, got %d", len(trend.Points))
	}
	totals := trend.Totals
	if totals.Jobs != 1 || totals.Revenue != 9000 || totals.LabourCost != 2400 || totals.Profit != 6600 {
		t.Fatalf("unexpected totals %+v", totals)
	}

	auto, err := client.New(server.URL).Trend(context.Background(), "2026-03-01", "2026-03-10", "")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if auto.Granularity != "day" || len(auto.Points) != 10 {
		t.Fatalf("expected 10 daily points for a ten day range, got %s %d", auto.Granularity, len(auto.Points))
	}
}

func TestServerServeStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := NewServer(listener.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
