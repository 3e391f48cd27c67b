// internal/domain/entity/task.go
package entity

import "time"

// TaskKind enumerates the stages of a market's task chain
type TaskKind string

const (
	TaskScrape          TaskKind = "scrape"
	TaskFareCopy        TaskKind = "fare-copy"
	TaskExtractSchedule TaskKind = "extract-schedule"
	TaskReoptimize      TaskKind = "re-optimize"
)

// Task status values
const (
	TaskPending   = "PENDING"
	TaskQueued    = "QUEUED"
	TaskRunning   = "RUNNING"
	TaskCompleted = "COMPLETED"
	TaskFailed    = "FAILED"
	TaskSkipped   = "SKIPPED"
)

// ScheduleTask is one unit of dispatchable work.
type ScheduleTask struct {
	ID               string     `json:"id"`
	Kind             TaskKind   `json:"kind"`
	HostCarrier      string     `json:"hostCarrier"`
	Origin           string     `json:"origin"`
	Destination      string     `json:"destination"`
	DepartureDate    *time.Time `json:"departureDate,omitempty"`
	ReturnDate       *time.Time `json:"returnDate,omitempty"`
	Direction        string     `json:"direction,omitempty"`
	StayDuration     int        `json:"stayDuration,omitempty"`
	ScraperID        string     `json:"scraperId"`
	IncludedCarriers []string   `json:"includedCarriers,omitempty"`
	MaxStops         int        `json:"maxStops"`
	MaxResults       int        `json:"maxResults"`
	Currency         string     `json:"currency,omitempty"`
	DependsOn        []string   `json:"dependsOn,omitempty"`
}

// Market returns ORIGIN-DEST.
func (t *ScheduleTask) Market() string {
	return t.Origin + "-" + t.Destination
}

// TaskLogEntry records a dispatched task
type TaskLogEntry struct {
	ID        uint
	TaskID    string
	Kind      TaskKind
	QueueName string
	Payload   string
	Host      string
	Market    string
	ScraperID string
	Status    string
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
