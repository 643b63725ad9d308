package engine

import (
	"net/http"
	"time"
)

// NewPooledHTTPClient builds an http.Client tuned for repeated calls to the
// same backend: a sized idle-connection pool and HTTP/2 where available.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
