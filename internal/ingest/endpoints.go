package ingest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"recplan/internal/logging"
)

type endpoint struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// ReadEndpoints maps endpoint ids to display names. A missing or unreadable
// file yields an empty map; planning continues without names.
func ReadEndpoints(path string, logger *slog.Logger) map[string]string {
	names := make(map[string]string)
	path = strings.TrimSpace(path)
	if path == "" {
		return names
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if logger != nil {
				logger.Debug("endpoints file not present", logging.String("path", path))
			}
			return names
		}
		logging.WarnWithContext(logger, "failed to read endpoints file; continuing without display names", "endpoints_read_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check file permissions"),
			logging.String(logging.FieldImpact, "tiles carry no display names"),
		)
		return names
	}
	var entries []endpoint
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.WarnWithContext(logger, "endpoints file is not valid json; continuing without display names", "endpoints_parse_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "expect an array of {id, displayName} objects"),
			logging.String(logging.FieldImpact, "tiles carry no display names"),
		)
		return names
	}
	for _, entry := range entries {
		name := strings.TrimSpace(entry.DisplayName)
		if entry.ID == "" || name == "" || name == "null" {
			continue
		}
		names[entry.ID] = name
	}
	return names
}
