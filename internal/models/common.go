package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Roles recognised by the API surface.
const (
	RoleStaff   = "staff"
	RoleStudent = "student"
)

// SystemMetrics is a lightweight aggregate snapshot for the ops endpoint,
// cheaper to consume than the full Prometheus scrape.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	GatewayCallCount         uint64    `json:"gateway_call_count"`
	AverageGatewayDurationMs float64   `json:"avg_gateway_duration_ms"`
	SavesScheduled           uint64    `json:"saves_scheduled"`
	SavesFailed              uint64    `json:"saves_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// JWTClaims are the claims carried by host-platform issued access tokens.
// This service only validates tokens; issuance lives with the platform.
type JWTClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
