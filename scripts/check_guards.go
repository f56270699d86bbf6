//go:build ignore
// +build ignore

// check_guards.go - Live guard check against a running server
//
// Usage:
//   BASE_URL=http://localhost:8080 ORIGIN=http://localhost:3000 \
//   SIGNING_SECRET=... go run scripts/check_guards.go
//
// Checks:
//   - Origin guard (missing and foreign origins are rejected)
//   - Rate limiting (the strict campaign preset trips on the second play)
//   - Signed internal events (signed accepted, tampered rejected)
//   - Security headers on public endpoints
//
// Run against a fresh instance with captcha disabled. The rate limit checks
// consume the caller's windows.

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/makerstokyo/api/pkg/signature"
)

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/")
	origin := getEnv("ORIGIN", "http://localhost:3000")
	secret := os.Getenv("SIGNING_SECRET")

	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Println("Guard Check Suite: " + baseURL)
	fmt.Println("=" + strings.Repeat("=", 70))

	results := []checkResult{}
	results = append(results, checkHeaders(baseURL)...)
	results = append(results, checkOrigin(baseURL)...)
	results = append(results, checkRateLimit(baseURL, origin)...)
	if secret != "" {
		results = append(results, checkSignedEvents(baseURL, secret)...)
	} else {
		fmt.Println("\n--- Signed Events ---\n  - skipped, SIGNING_SECRET not set")
	}

	if printSummary(results) > 0 {
		os.Exit(1)
	}
}

type checkResult struct {
	suite  string
	name   string
	passed bool
	reason string
}

func expectStatus(suite, name string, got, want int) checkResult {
	if got == want {
		fmt.Printf("  ✓ %s\n", name)
		return checkResult{suite: suite, name: name, passed: true}
	}
	fmt.Printf("  ✗ %s\n", name)
	return checkResult{suite: suite, name: name, reason: fmt.Sprintf("status %d, want %d", got, want)}
}

func printSummary(results []checkResult) int {
	fmt.Println()
	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Println("SUMMARY")
	fmt.Println("=" + strings.Repeat("=", 70))

	failed := 0
	for _, r := range results {
		if !r.passed {
			failed++
			fmt.Printf("  - [%s] %s: %s\n", r.suite, r.name, r.reason)
		}
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", len(results)-failed, failed)
	return failed
}

func do(method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp, nil
}

func status(method, url string, body []byte, headers map[string]string) int {
	resp, err := do(method, url, body, headers)
	if err != nil {
		return 0
	}
	return resp.StatusCode
}

// =============================================================================
// Security Headers
// =============================================================================

func checkHeaders(baseURL string) []checkResult {
	suite := "Security Headers"
	fmt.Printf("\n--- %s ---\n", suite)

	resp, err := do(http.MethodGet, baseURL+"/health", nil, nil)
	if err != nil {
		return []checkResult{{suite: suite, name: "health reachable", reason: err.Error()}}
	}

	results := []checkResult{expectStatus(suite, "health reachable", resp.StatusCode, http.StatusOK)}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		name := h + " present"
		if resp.Header.Get(h) != "" {
			fmt.Printf("  ✓ %s\n", name)
			results = append(results, checkResult{suite: suite, name: name, passed: true})
			continue
		}
		fmt.Printf("  ✗ %s\n", name)
		results = append(results, checkResult{suite: suite, name: name, reason: "header missing"})
	}
	return results
}

// =============================================================================
// Origin Guard
// =============================================================================

func checkOrigin(baseURL string) []checkResult {
	suite := "Origin Guard"
	fmt.Printf("\n--- %s ---\n", suite)

	url := baseURL + "/api/v1/auth/magic-link"
	body := []byte(`{"email":"guard-check@example.com"}`)

	return []checkResult{
		expectStatus(suite, "missing origin rejected", status(http.MethodPost, url, body, nil), http.StatusForbidden),
		expectStatus(suite, "foreign origin rejected",
			status(http.MethodPost, url, body, map[string]string{"Origin": "https://evil.example"}), http.StatusForbidden),
	}
}

// =============================================================================
// Rate Limiting
// =============================================================================

func checkRateLimit(baseURL, origin string) []checkResult {
	suite := "Rate Limiting"
	fmt.Printf("\n--- %s ---\n", suite)

	url := baseURL + "/api/v1/campaigns/guard-check/plays"
	headers := map[string]string{"Origin": origin}

	first, err := do(http.MethodPost, url, []byte(`{}`), headers)
	if err != nil {
		return []checkResult{{suite: suite, name: "first play", reason: err.Error()}}
	}
	results := []checkResult{expectStatus(suite, "first play accepted", first.StatusCode, http.StatusCreated)}

	second, err := do(http.MethodPost, url, []byte(`{}`), headers)
	if err != nil {
		return append(results, checkResult{suite: suite, name: "second play", reason: err.Error()})
	}
	results = append(results, expectStatus(suite, "second play limited", second.StatusCode, http.StatusTooManyRequests))

	name := "Retry-After present"
	if second.Header.Get("Retry-After") != "" {
		fmt.Printf("  ✓ %s\n", name)
		results = append(results, checkResult{suite: suite, name: name, passed: true})
	} else {
		fmt.Printf("  ✗ %s\n", name)
		results = append(results, checkResult{suite: suite, name: name, reason: "header missing"})
	}
	return results
}

// =============================================================================
// Signed Internal Events
// =============================================================================

func checkSignedEvents(baseURL, secret string) []checkResult {
	suite := "Signed Events"
	fmt.Printf("\n--- %s ---\n", suite)

	url := baseURL + "/api/v1/internal/events"
	body := []byte(`{"type":"guard.check","data":{"ok":true}}`)
	ts := signature.NewSigner(secret).SignTimed(string(body))
	headers := map[string]string{
		"X-Signature":           ts.Signature,
		"X-Signature-Timestamp": strconv.FormatInt(ts.Timestamp, 10),
	}

	tampered := []byte(`{"type":"guard.check","data":{"ok":false}}`)
	return []checkResult{
		expectStatus(suite, "signed event accepted", status(http.MethodPost, url, body, headers), http.StatusAccepted),
		expectStatus(suite, "tampered body rejected", status(http.MethodPost, url, tampered, headers), http.StatusUnauthorized),
		expectStatus(suite, "unsigned event rejected", status(http.MethodPost, url, body, nil), http.StatusUnauthorized),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
