package models

import "time"

// EnqueueResponse is returned when a request is accepted (or served
// straight from the cache).
type EnqueueResponse struct {
	RequestID   string `json:"requestId,omitempty"`
	DocID       string `json:"docId"`
	Status      string `json:"status"`
	Position    int    `json:"position,omitempty"`
	QueueLength int    `json:"queueLength"`
	ETASeconds  int    `json:"etaSeconds,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
}

// StatusResponse reports the state of a queued request.
type StatusResponse struct {
	RequestID   string `json:"requestId"`
	DocID       string `json:"docId"`
	Status      string `json:"status"`
	Position    int    `json:"position,omitempty"`
	QueueLength int    `json:"queueLength"`
	ETASeconds  int    `json:"etaSeconds,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// LinkResponse serves a cached download URL.
type LinkResponse struct {
	DocID       string `json:"docId"`
	DownloadURL string `json:"downloadUrl"`
}

// StatsResponse reports the lifetime download counter.
type StatsResponse struct {
	TotalDownloads int       `json:"totalDownloads"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	QueueLength int    `json:"queueLength"`
}
