package conf

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Tunables holds the knobs that operators are expected to adjust per
// deployment. Everything has a default; a TOML file overrides it.
type Tunables struct {
	RoomCapacity      int
	RoundTimeLimit    time.Duration
	DisconnectGrace   time.Duration
	SweepInterval     time.Duration
	RoomInactiveGrace time.Duration

	FreshnessEpsilon   float64
	SimilarityDefault  float64
	SimilarityOverride map[string]float64 // keyed by difficulty

	PollInitialDelay time.Duration
	PollMultiplier   float64
	PollMaxDelay     time.Duration
	PollMaxRounds    int

	ExternalCallTimeout time.Duration
}

// durations live in the file as plain integers (seconds or millis) so
// the file stays editable without knowing Go duration syntax.
type fileTunables struct {
	RoomCapacity         *int               `toml:"room_capacity"`
	RoundTimeLimitS      *int               `toml:"round_time_limit_s"`
	DisconnectGraceS     *int               `toml:"disconnect_grace_s"`
	SweepIntervalS       *int               `toml:"sweep_interval_s"`
	RoomInactiveGraceS   *int               `toml:"room_inactive_grace_s"`
	FreshnessEpsilon     *float64           `toml:"freshness_epsilon"`
	SimilarityDefault    *float64           `toml:"similarity_default"`
	SimilarityOverride   map[string]float64 `toml:"similarity_threshold"`
	PollInitialDelayMs   *int               `toml:"poll_initial_delay_ms"`
	PollMultiplier       *float64           `toml:"poll_multiplier"`
	PollMaxDelayMs       *int               `toml:"poll_max_delay_ms"`
	PollMaxRounds        *int               `toml:"poll_max_rounds"`
	ExternalCallTimeoutS *int               `toml:"external_call_timeout_s"`
}

func DefaultTunables() Tunables {
	return Tunables{
		RoomCapacity:      8,
		RoundTimeLimit:    15 * time.Minute,
		DisconnectGrace:   60 * time.Second,
		SweepInterval:     30 * time.Second,
		RoomInactiveGrace: 10 * time.Minute,
		FreshnessEpsilon:  0.05,
		SimilarityDefault: 0.70,
		SimilarityOverride: map[string]float64{
			"easy":   0.75,
			"medium": 0.72,
		},
		PollInitialDelay:    1000 * time.Millisecond,
		PollMultiplier:      1.5,
		PollMaxDelay:        5000 * time.Millisecond,
		PollMaxRounds:       10,
		ExternalCallTimeout: 10 * time.Second,
	}
}

// ReadTunables loads the tunables TOML file at path, falling back to
// defaults when the file does not exist. A present but malformed file
// is an error; silently running with defaults in that case hides typos.
func ReadTunables(path string) (Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("failed to read tunables file: %w", err)
	}
	var ft fileTunables
	if err := toml.Unmarshal(body, &ft); err != nil {
		return t, fmt.Errorf("failed to parse tunables file: %w", err)
	}
	ft.apply(&t)
	return t, nil
}

func (ft fileTunables) apply(t *Tunables) {
	if ft.RoomCapacity != nil {
		t.RoomCapacity = *ft.RoomCapacity
	}
	if ft.RoundTimeLimitS != nil {
		t.RoundTimeLimit = time.Duration(*ft.RoundTimeLimitS) * time.Second
	}
	if ft.DisconnectGraceS != nil {
		t.DisconnectGrace = time.Duration(*ft.DisconnectGraceS) * time.Second
	}
	if ft.SweepIntervalS != nil {
		t.SweepInterval = time.Duration(*ft.SweepIntervalS) * time.Second
	}
	if ft.RoomInactiveGraceS != nil {
		t.RoomInactiveGrace = time.Duration(*ft.RoomInactiveGraceS) * time.Second
	}
	if ft.FreshnessEpsilon != nil {
		t.FreshnessEpsilon = *ft.FreshnessEpsilon
	}
	if ft.SimilarityDefault != nil {
		t.SimilarityDefault = *ft.SimilarityDefault
	}
	if ft.SimilarityOverride != nil {
		t.SimilarityOverride = ft.SimilarityOverride
	}
	if ft.PollInitialDelayMs != nil {
		t.PollInitialDelay = time.Duration(*ft.PollInitialDelayMs) * time.Millisecond
	}
	if ft.PollMultiplier != nil {
		t.PollMultiplier = *ft.PollMultiplier
	}
	if ft.PollMaxDelayMs != nil {
		t.PollMaxDelay = time.Duration(*ft.PollMaxDelayMs) * time.Millisecond
	}
	if ft.PollMaxRounds != nil {
		t.PollMaxRounds = *ft.PollMaxRounds
	}
	if ft.ExternalCallTimeoutS != nil {
		t.ExternalCallTimeout = time.Duration(*ft.ExternalCallTimeoutS) * time.Second
	}
}

// SimilarityThreshold returns the minimum acceptable nearest-neighbor
// score for reusing a cached challenge of the given difficulty.
func (t Tunables) SimilarityThreshold(difficulty string) float64 {
	if v, ok := t.SimilarityOverride[difficulty]; ok {
		return v
	}
	return t.SimilarityDefault
}

// GetEnvOrPanic mirrors how the rest of the process reads required
// configuration: the server cannot come up without it.
func GetEnvOrPanic(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("%s is not set", key))
	}
	return v
}
