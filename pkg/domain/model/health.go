package model

import "github.com/m-mizutani/drover/pkg/domain/types"

// HealthStatus is the serve-mode health check response body
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// NewHealthStatus reports the running service as healthy.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		Status:  "healthy",
		Service: "drover",
		Version: types.Version,
	}
}
