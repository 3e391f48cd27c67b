package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
)

// statusSuccess is the only response status treated as a completed call
const statusSuccess = "success"

// HTTPScraperClient calls scraper servers over HTTP
type HTTPScraperClient struct {
	client      *http.Client
	bearerToken string
	logger      logger.Logger
}

// NewHTTPScraperClient creates a scraper client. timeout bounds one call.
func NewHTTPScraperClient(timeout time.Duration, bearerToken string, logger logger.Logger) repository.ScraperClient {
	return &HTTPScraperClient{
		client:      &http.Client{Timeout: timeout},
		bearerToken: bearerToken,
		logger:      logger,
	}
}

type scrapeRequest struct {
	TaskID           string   `json:"taskId"`
	HostCarrier      string   `json:"hostCarrier"`
	Origin           string   `json:"origin"`
	Destination      string   `json:"destination"`
	DepartureDate    string   `json:"departureDate,omitempty"`
	ReturnDate       string   `json:"returnDate,omitempty"`
	Direction        string   `json:"direction,omitempty"`
	StayDuration     int      `json:"stayDuration,omitempty"`
	Scraper          string   `json:"scraper"`
	IncludedCarriers []string `json:"includedCarriers,omitempty"`
	MaxStops         int      `json:"maxStops"`
	MaxResults       int      `json:"maxResults"`
	Currency         string   `json:"currency,omitempty"`
}

type serverResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func newScrapeRequest(task *entity.ScheduleTask) scrapeRequest {
	req := scrapeRequest{
		TaskID:           task.ID,
		HostCarrier:      task.HostCarrier,
		Origin:           task.Origin,
		Destination:      task.Destination,
		Direction:        task.Direction,
		StayDuration:     task.StayDuration,
		Scraper:          task.ScraperID,
		IncludedCarriers: task.IncludedCarriers,
		MaxStops:         task.MaxStops,
		MaxResults:       task.MaxResults,
		Currency:         task.Currency,
	}
	if task.DepartureDate != nil {
		req.DepartureDate = task.DepartureDate.Format("2006-01-02")
	}
	if task.ReturnDate != nil {
		req.ReturnDate = task.ReturnDate.Format("2006-01-02")
	}
	return req
}

// Scrape asks server to scrape one market and departure date
func (c *HTTPScraperClient) Scrape(ctx context.Context, server string, task *entity.ScheduleTask) error {
	return c.post(ctx, server, "/api/v1/scrape", newScrapeRequest(task))
}

// RunStage asks server to run a post-scrape stage for one market and scraper
func (c *HTTPScraperClient) RunStage(ctx context.Context, server string, task *entity.ScheduleTask) error {
	return c.post(ctx, server, "/api/v1/stages/"+string(task.Kind), newScrapeRequest(task))
}

func (c *HTTPScraperClient) post(ctx context.Context, server, path string, body interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(server, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("scraper server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var response serverResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Status != statusSuccess {
		return fmt.Errorf("scraper server did not confirm success: status=%q message=%q", response.Status, response.Message)
	}

	c.logger.Debug("Scraper call succeeded", "url", url)
	return nil
}
