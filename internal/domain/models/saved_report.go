package models

import (
	"encoding/json"
	"time"
)

// DefaultReportFolder is used when a report is saved without a folder
const DefaultReportFolder = "General"

// SavedReport is a persona report the user saved, stored as the chat JSON
// the web app produced. CDRs comparisons read two to five of these.
type SavedReport struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	ProfileName string          `json:"profileName" db:"profile_name"`
	ChatJSON    json.RawMessage `json:"chatJson" db:"chat_json"`
	Folder      string          `json:"folder" db:"folder"`
	SavedAt     time.Time       `json:"savedAt" db:"saved_at"`
}

// CreateSavedReportRequest is the body of POST /api/saved-chats
type CreateSavedReportRequest struct {
	ProfileName string          `json:"profileName"`
	ChatJSON    json.RawMessage `json:"chatJson"`
	Folder      string          `json:"folder"`
}
