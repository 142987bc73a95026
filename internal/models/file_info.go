package models

import "time"

// FileInfo represents metadata about a file saved for download.
type FileInfo struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	SavedAt time.Time `json:"savedAt"`
	Status  string    `json:"status"` // "saved"
}
