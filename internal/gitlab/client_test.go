package gitlab

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const (
	TestGitLabToken   = "test-token-12345"
	TestGitLabURL     = "https://gitlab.example.com"
	TestProjectID     = 123
	TestProjectPath   = "group/project"
	InvalidToken      = ""
	InvalidProjectID  = -1
	NonExistentID     = 999999
	LongProjectName   = "very-long-project-name-that-exceeds-normal-limits-and-should-be-validated-properly"
	TestUserAgent     = "gitlab-mr-conflict-detector/test"
	CustomTestTimeout = 60 * time.Second
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		baseURL     string
		expectError bool
		description string
	}{
		{
			name:        "valid token and URL",
			token:       TestGitLabToken,
			baseURL:     TestGitLabURL,
			expectError: false,
			description: "should create client with valid inputs",
		},
		{
			name:        "valid token with empty URL falls back to default",
			token:       TestGitLabToken,
			baseURL:     "",
			expectError: false,
			description: "should default to DefaultGitLabURL",
		},
		{
			name:        "empty token",
			token:       InvalidToken,
			baseURL:     TestGitLabURL,
			expectError: true,
			description: "should reject an empty token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.token, tt.baseURL)

			if tt.expectError {
				if err == nil {
					t.Errorf("NewClient(%q, %q) expected error but got none", tt.token, tt.baseURL)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient(%q, %q) unexpected error: %v", tt.token, tt.baseURL, err)
			}
			if client.GetGitLabClient() == nil {
				t.Error("NewClient() should produce a non-nil underlying SDK client")
			}
			if client.GetTimeout() != DefaultTimeout {
				t.Errorf("GetTimeout() = %v, want default %v", client.GetTimeout(), DefaultTimeout)
			}
		})
	}
}

func TestNewClientWithConfig(t *testing.T) {
	client, err := NewClientWithConfig(TestGitLabToken, TestGitLabURL, CustomTestTimeout, 5)
	if err != nil {
		t.Fatalf("NewClientWithConfig() unexpected error: %v", err)
	}
	if client.GetTimeout() != CustomTestTimeout {
		t.Errorf("GetTimeout() = %v, want %v", client.GetTimeout(), CustomTestTimeout)
	}
	if client.maxRetries != 5 {
		t.Errorf("maxRetries = %d, want 5", client.maxRetries)
	}
}

func TestClient_GetProject_NilUnderlyingClient(t *testing.T) {
	client := &Client{}
	if _, err := client.GetProject(TestProjectID); err == nil {
		t.Error("GetProject() with nil underlying client should error")
	}
}

func TestClient_ResolveProjectID_NilUnderlyingClient(t *testing.T) {
	client := &Client{}
	if _, err := client.ResolveProjectID(TestProjectPath); err == nil {
		t.Error("ResolveProjectID() with nil underlying client should error")
	}
}

var errTransport = errors.New("connection reset")

func TestClient_Retry_SucceedsFirstTry(t *testing.T) {
	client := &Client{maxRetries: MaxRetryAttempts, retryDelay: time.Millisecond}
	calls := 0

	resp, err := client.Retry(context.Background(), func() (*gitlab.Response, error) {
		calls++
		return &gitlab.Response{Response: &http.Response{StatusCode: http.StatusOK}}, nil
	})

	if err != nil {
		t.Fatalf("Retry() unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("resp.StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (no retry needed)", calls)
	}
}

func TestClient_Retry_RetriesOnTransportFailure(t *testing.T) {
	client := &Client{maxRetries: 2, retryDelay: time.Millisecond}
	calls := 0

	_, err := client.Retry(context.Background(), func() (*gitlab.Response, error) {
		calls++
		if calls < 3 {
			return nil, errTransport
		}
		return &gitlab.Response{Response: &http.Response{StatusCode: http.StatusOK}}, nil
	})

	if err != nil {
		t.Fatalf("Retry() unexpected error after eventual success: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3 (2 failures then success)", calls)
	}
}

func TestClient_Retry_GivesUpAfterMaxAttempts(t *testing.T) {
	client := &Client{maxRetries: 2, retryDelay: time.Millisecond}
	calls := 0

	_, err := client.Retry(context.Background(), func() (*gitlab.Response, error) {
		calls++
		return nil, errTransport
	})

	if err == nil {
		t.Fatal("Retry() expected an error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3 (1 initial + 2 retries)", calls)
	}
}

func TestClient_Retry_DoesNotRetryClientErrors(t *testing.T) {
	client := &Client{maxRetries: 3, retryDelay: time.Millisecond}
	calls := 0

	_, err := client.Retry(context.Background(), func() (*gitlab.Response, error) {
		calls++
		return &gitlab.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}, errors.New("404 not found")
	})

	if err == nil {
		t.Fatal("Retry() expected the 404 error to propagate")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (4xx is not retryable)", calls)
	}
}

func TestClient_Retry_RetriesOn5xx(t *testing.T) {
	client := &Client{maxRetries: 1, retryDelay: time.Millisecond}
	calls := 0

	_, err := client.Retry(context.Background(), func() (*gitlab.Response, error) {
		calls++
		return &gitlab.Response{Response: &http.Response{StatusCode: http.StatusBadGateway}}, errors.New("502 bad gateway")
	})

	if err == nil {
		t.Fatal("Retry() expected the error to propagate once attempts are exhausted")
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2 (1 initial + 1 retry on 5xx)", calls)
	}
}

func TestClient_Retry_RespectsContextCancellation(t *testing.T) {
	client := &Client{maxRetries: MaxRetryAttempts, retryDelay: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	cancel()
	_, err := client.Retry(ctx, func() (*gitlab.Response, error) {
		calls++
		return nil, errTransport
	})

	if err == nil {
		t.Fatal("Retry() expected an error when the context is already cancelled")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (context.Done should stop before the second attempt)", calls)
	}
}
