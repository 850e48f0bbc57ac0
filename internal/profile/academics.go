package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// AcademicsClient fetches grades and attendance through the gateway.
type AcademicsClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewAcademicsClient builds an AcademicsClient. timeout bounds both lookups
// together.
func NewAcademicsClient(baseURL string, timeout time.Duration, httpClient *http.Client) *AcademicsClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &AcademicsClient{baseURL: baseURL, httpClient: httpClient, timeout: timeout}
}

type gradesResponse struct {
	Success bool `json:"success"`
	Grades  any  `json:"grades"`
	GPA     any  `json:"gpa"`
}

type attendanceResponse struct {
	Success    bool `json:"success"`
	Attendance any  `json:"attendance"`
	Summary    any  `json:"summary"`
}

// Enrich attaches grades and attendance to view. Lookup failures leave the
// corresponding fields empty.
func (c *AcademicsClient) Enrich(ctx context.Context, username, authorization string, view *model.StudentView) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		grades     gradesResponse
		attendance attendanceResponse
	)
	g, ctx := errgroup.WithContext(ctx)
	log := logrus.WithField("student_id", username)
	g.Go(func() error {
		if err := c.get(ctx, "/academics/grades", username, authorization, &grades); err != nil {
			log.WithError(err).Debug("grades lookup failed")
		}
		return nil
	})
	g.Go(func() error {
		if err := c.get(ctx, "/academics/attendance", username, authorization, &attendance); err != nil {
			log.WithError(err).Debug("attendance lookup failed")
		}
		return nil
	})
	_ = g.Wait()

	if grades.Success {
		view.Grades = grades.Grades
		view.GPASummary = grades.GPA
	}
	if attendance.Success {
		view.Attendance = attendance.Attendance
		view.AttendanceSummary = attendance.Summary
	}
}

func (c *AcademicsClient) get(ctx context.Context, path, username, authorization string, out any) error {
	endpoint := c.baseURL + path + "?studentId=" + url.QueryEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
