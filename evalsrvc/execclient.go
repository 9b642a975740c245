package evalsrvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// statuses at or above this id are terminal on the execution service;
// below it the submission is still queued or running
const terminalStatusThreshold = 3

// statusIDAccepted is the terminal success status.
const statusIDAccepted = 3

type ExecStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

func (s ExecStatus) Terminal() bool {
	return s.ID >= terminalStatusThreshold
}

func (s ExecStatus) Success() bool {
	return s.ID == statusIDAccepted
}

// ExecResult is one test-case program's state on the execution service,
// with all payloads already base64-decoded.
type ExecResult struct {
	Token         string
	Status        ExecStatus
	Stdout        string
	Stderr        string
	CompileOutput string
}

type BatchItem struct {
	LanguageID     int
	SourceCode     string
	ExpectedOutput string
}

// ExecClient is the execution-service boundary: one batch submit per
// submission, then repeated batch fetches until every token is
// terminal.
type ExecClient interface {
	SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error)
	FetchBatch(ctx context.Context, tokens []string) ([]ExecResult, error)
}

// HttpExecClient speaks the sandbox's batch HTTP protocol with
// base64-encoded payloads.
type HttpExecClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func NewHttpExecClient(baseURL, authToken string, timeout time.Duration) *HttpExecClient {
	return &HttpExecClient{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
	}
}

type execSubmission struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	ExpectedOutput string `json:"expected_output"`
}

type execBatchRequest struct {
	Submissions []execSubmission `json:"submissions"`
}

type execTokenResponse struct {
	Token string `json:"token"`
}

type execFetchResponse struct {
	Submissions []struct {
		Token         string     `json:"token"`
		Status        ExecStatus `json:"status"`
		Stdout        *string    `json:"stdout"`
		Stderr        *string    `json:"stderr"`
		CompileOutput *string    `json:"compile_output"`
	} `json:"submissions"`
}

func (c *HttpExecClient) SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	reqBody := execBatchRequest{Submissions: make([]execSubmission, len(items))}
	for i, item := range items {
		reqBody.Submissions[i] = execSubmission{
			LanguageID:     item.LanguageID,
			SourceCode:     base64.StdEncoding.EncodeToString([]byte(item.SourceCode)),
			ExpectedOutput: base64.StdEncoding.EncodeToString([]byte(item.ExpectedOutput)),
		}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	u := c.baseURL + "/submissions/batch?base64_encoded=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch submit failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution service returned status %d on submit", resp.StatusCode)
	}

	var tokens []execTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("failed to decode batch tokens: %w", err)
	}
	if len(tokens) != len(items) {
		return nil, fmt.Errorf("execution service returned %d tokens for %d programs", len(tokens), len(items))
	}
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Token == "" {
			return nil, fmt.Errorf("execution service returned an empty token")
		}
		out[i] = t.Token
	}
	return out, nil
}

func (c *HttpExecClient) FetchBatch(ctx context.Context, tokens []string) ([]ExecResult, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("base64_encoded", "true")
	q.Set("fields", "token,status,stdout,stderr,compile_output")

	u := c.baseURL + "/submissions/batch?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution service returned status %d on fetch", resp.StatusCode)
	}

	var fetched execFetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		return nil, fmt.Errorf("failed to decode batch results: %w", err)
	}
	if len(fetched.Submissions) != len(tokens) {
		return nil, fmt.Errorf("execution service returned %d results for %d tokens", len(fetched.Submissions), len(tokens))
	}

	results := make([]ExecResult, len(fetched.Submissions))
	for i, sub := range fetched.Submissions {
		results[i] = ExecResult{
			Token:         sub.Token,
			Status:        sub.Status,
			Stdout:        decodeB64(sub.Stdout),
			Stderr:        decodeB64(sub.Stderr),
			CompileOutput: decodeB64(sub.CompileOutput),
		}
	}
	return results, nil
}

func decodeB64(s *string) string {
	if s == nil {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*s))
	if err != nil {
		// some sandboxes return raw text for fields they never encoded
		return *s
	}
	return string(decoded)
}
