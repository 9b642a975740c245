package challsrvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// generator payloads must carry exactly this many test cases; the
// storage-side minimum of three applies to imported content only
const generatorTestCases = 5

// HttpGenerator requests challenge content from the generation service.
// Incomplete or malformed payloads are rejected here, before anything
// reaches the store.
type HttpGenerator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHttpGenerator(baseURL, apiKey string, timeout time.Duration) *HttpGenerator {
	return &HttpGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

func (g *HttpGenerator) Generate(ctx context.Context, topic, difficulty string) (*ChallengeInput, error) {
	body, err := json.Marshal(generateRequest{Topic: topic, Difficulty: difficulty})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var in ChallengeInput
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to decode generated challenge: %w", err)
	}
	if verr := validateGenerated(&in, topic, difficulty); verr != nil {
		return nil, verr
	}
	return &in, nil
}

func validateGenerated(in *ChallengeInput, topic, difficulty string) error {
	// the generator occasionally drifts off prompt; pin the record to
	// what was actually requested
	if in.Topic == "" {
		in.Topic = topic
	}
	if in.Difficulty == "" {
		in.Difficulty = difficulty
	}
	if err := validateInput(in); err != nil {
		return err
	}
	if len(in.TestCases) != generatorTestCases {
		return newErrInvalidChallenge(fmt.Sprintf("expected exactly %d test cases, got %d", generatorTestCases, len(in.TestCases)))
	}
	if len(in.Examples) == 0 {
		return newErrInvalidChallenge("examples are missing")
	}
	if len(in.Constraints) == 0 {
		return newErrInvalidChallenge("constraints are missing")
	}
	return nil
}
