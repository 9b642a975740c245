package http

import (
	"encoding/json"
	"net/http"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/logger"
)

// ChallengeView is the wire shape of a challenge; solutions and the
// solved-set stay server-side.
type ChallengeView struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Topic        string               `json:"topic"`
	Difficulty   string               `json:"difficulty"`
	Templates    map[string]string    `json:"templates"`
	Examples     []challsrvc.Example  `json:"examples"`
	Constraints  []string             `json:"constraints"`
	FunctionName string               `json:"functionName"`
	MaxScore     int                  `json:"maxScore"`
	TestCases    []challsrvc.TestCase `json:"testCases"`
}

func mapChallenge(ch *challsrvc.Challenge) ChallengeView {
	return ChallengeView{
		ID:           ch.ID,
		Title:        ch.Title,
		Description:  ch.Description,
		Topic:        ch.Topic,
		Difficulty:   ch.Difficulty,
		Templates:    ch.Templates,
		Examples:     ch.Examples,
		Constraints:  ch.Constraints,
		FunctionName: ch.FunctionName,
		MaxScore:     ch.MaxScore,
		TestCases:    ch.TestCases,
	}
}

// storeChallenge lets operators seed the challenge pool directly,
// bypassing the generator.
func (httpserver *HttpServer) storeChallenge(w http.ResponseWriter, r *http.Request) {
	var input challsrvc.ChallengeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ch, err := httpserver.challSrvc.StoreChallenge(r.Context(), &input)
	if err != nil {
		handleJsonSrvcError(logger.FromContext(r.Context()), w, err)
		return
	}
	writeJsonSuccess(w, http.StatusCreated, mapChallenge(ch))
}
