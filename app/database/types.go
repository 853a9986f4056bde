package database

import (
	"time"
)

type Run struct {
	ID            string // Database UUID
	Topic         string
	Profile       string // Profile name the run was started with, if any
	LookbackHours int
	PostCount     int
	SourceCounts  map[string]int
	PulledAt      time.Time
	CreatedAt     time.Time
}

type Post struct {
	ID          string
	RunID       string
	Source      string
	Author      string
	Text        string
	URL         string
	PostedAt    time.Time
	Score       int
	Metadata    map[string]any
	ContentHash string
	CreatedAt   time.Time
}

type Brief struct {
	ID        string
	RunID     string
	Model     string
	Content   string
	CreatedAt time.Time
}
