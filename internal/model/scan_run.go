package model

import "time"

// ScanRun summarizes one fetch and detection pass.
type ScanRun struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	PoolsTotal    int       `json:"pools_total"`
	PoolsFetched  int       `json:"pools_fetched"`
	PoolsFailed   int       `json:"pools_failed"`
	Opportunities int       `json:"opportunities"`
}

// Snapshot is the published result of a scan run.
type Snapshot struct {
	Run           ScanRun       `json:"run"`
	Opportunities []Opportunity `json:"opportunities"`
}
