package challsrvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Challenge is the canonical record of a coding challenge. The
// queryable metadata lives in DynamoDB; the document fields
// (description, examples, templates, test cases) are stored as a
// zstd-compressed JSON blob referenced by the row.
type Challenge struct {
	ID           string
	Title        string
	Description  string
	Topic        string
	Difficulty   string
	Templates    map[string]string // language slug -> starter code
	Examples     []Example
	Constraints  []string
	TestCases    []TestCase
	FunctionName string
	MaxScore     int

	SolvedBy   []string // identity keys
	Embedding  []float32
	UsageCount int
	LastUsedAt time.Time
	CreatedAt  time.Time
}

type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// TestCase pairs a named-parameter input object with the expected
// output value. Argument order is the object's declared key order,
// which the harness relies on for positional invocation.
type TestCase struct {
	Input  ArgList         `json:"input"`
	Output json.RawMessage `json:"output"`
}

// Arg is one named argument of a test case.
type Arg struct {
	Name  string
	Value json.RawMessage
}

// ArgList preserves the key order of a JSON object, which encoding/json
// maps would lose.
type ArgList []Arg

func (a *ArgList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("test case input must be a JSON object")
	}
	args := make(ArgList, 0, 4)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token in test case input: %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		args = append(args, Arg{Name: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return err
	}
	*a = args
	return nil
}

func (a ArgList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(arg.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(arg.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ChallengeInput is the payload accepted by StoreChallenge, matching
// what the generator produces.
type ChallengeInput struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Topic        string            `json:"topic"`
	Difficulty   string            `json:"difficulty"`
	Examples     []Example         `json:"examples"`
	Constraints  []string          `json:"constraints"`
	Templates    map[string]string `json:"templates"`
	TestCases    []TestCase        `json:"testCases"`
	FunctionName string            `json:"functionName"`
	MaxScore     int               `json:"maxScore,omitempty"`
}

// Source reports where a retrieved challenge came from.
type Source string

const (
	SourceCache    Source = "cache"    // similarity index hit
	SourceFallback Source = "fallback" // durable store LRU
	SourceNone     Source = "none"
)

// Retrieval is the result of GetUnsolvedChallenge.
type Retrieval struct {
	Found      bool
	Challenge  *Challenge
	Similarity float64 // only meaningful for SourceCache
	Source     Source
}

// challengeDoc is the blob-side projection of a challenge.
type challengeDoc struct {
	Description string            `json:"description"`
	Examples    []Example         `json:"examples"`
	Constraints []string          `json:"constraints"`
	Templates   map[string]string `json:"templates"`
	TestCases   []TestCase        `json:"testCases"`
}
