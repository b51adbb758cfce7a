package health

import (
	"log/slog"
)

type (
	Handler struct {
		logger      *slog.Logger
		loggerLevel *slog.LevelVar
	}

	LogLevelRequest struct {
		Level string `json:"level"`
	}

	LogLevelResponse struct {
		Level string `json:"level"`
	}
)
