package api

import (
	"github.com/avoronov/xscout/app/database"
)

type Handler struct {
	runRepo  database.RunRepository
	postRepo database.PostRepository
}
