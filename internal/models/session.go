package models

import "time"

// ViewerSession describes one browser session of the viewer.
type ViewerSession struct {
	ID           string    `json:"id"`
	Region       Region    `json:"region"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}
