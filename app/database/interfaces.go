package database

import (
	"time"

	"github.com/avoronov/xscout/app/sources"
)

type RunRepository interface {
	CreateRun(topic, profile string, lookbackHours int, pulledAt time.Time, sourceCounts map[string]int, postCount int) (string, error)
	GetRun(id string) (*Run, error)
	GetRuns(limit int) ([]Run, error)
	GetRunCount() (int, error)

	SaveBrief(runID, model, content string) (string, error)
	GetBrief(runID string) (*Brief, error)
}

type PostRepository interface {
	InsertPosts(runID string, posts []sources.Post) error
	GetPosts(runID string) ([]Post, error)
	GetPostCount(runID string) (int, error)
}
