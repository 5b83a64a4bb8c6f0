package models

import (
	"net/http"
	"time"
)

// CacheEntry is an immutable snapshot of a response stored in a cache generation.
type CacheEntry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

type GenerationState string

const (
	GenerationInstalling GenerationState = "installing"
	GenerationWaiting    GenerationState = "waiting"
	GenerationActive     GenerationState = "active"
	GenerationRedundant  GenerationState = "redundant"
)

type GenerationInfo struct {
	Name        string          `json:"name"`
	State       GenerationState `json:"state"`
	Policy      string          `json:"policy"`
	Manifest    []string        `json:"manifest"`
	InstalledAt time.Time       `json:"installed_at"`
}

type CacheStatus struct {
	Backend    string          `json:"backend"`
	Active     *GenerationInfo `json:"active,omitempty"`
	Waiting    *GenerationInfo `json:"waiting,omitempty"`
	Installing *GenerationInfo `json:"installing,omitempty"`
	Stores     []string        `json:"stores"`
}
