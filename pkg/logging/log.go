package logging

import (
	"log/slog"
	"os"
)

// Logger defaults to a text handler so packages can log before Init runs.
var Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

func Init() {
	if os.Getenv("APP_ENV") == "prod" {
		Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}
