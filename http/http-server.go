package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"

	"github.com/codeclash/backend/challsrvc"
	"github.com/codeclash/backend/logger"
	"github.com/codeclash/backend/roomsrvc"
)

type HttpServer struct {
	registry  *roomsrvc.Registry
	challSrvc *challsrvc.ChallengeSrvc
	router    *chi.Mux
}

func NewHttpServer(
	registry *roomsrvc.Registry,
	challSrvc *challsrvc.ChallengeSrvc,
	allowedOrigins []string,
) *HttpServer {
	router := chi.NewRouter()

	httpLogger := httplog.NewLogger("codeclash", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "message",
	})

	router.Use(httplog.RequestLogger(httpLogger))
	router.Use(requestIDMiddleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	server := &HttpServer{
		registry:  registry,
		challSrvc: challSrvc,
		router:    router,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) Start(address string) error {
	return http.ListenAndServe(address, httpserver.router)
}

func (httpserver *HttpServer) Handler() http.Handler {
	return httpserver.router
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Post("/rooms", httpserver.createRoom)
	r.Get("/rooms", httpserver.listRooms)
	r.Route("/rooms/{roomID}", func(sub chi.Router) {
		sub.Use(roomIDMiddleware)
		sub.Get("/", httpserver.getRoom)
		sub.Post("/join", httpserver.joinRoom)
		sub.Post("/leave", httpserver.leaveRoom)
		sub.Post("/disconnect", httpserver.disconnect)
		sub.Post("/generate", httpserver.generateRound)
		sub.Post("/end", httpserver.endRoom)
		sub.Post("/reset", httpserver.resetRoom)
		sub.Post("/submissions", httpserver.createSubmission)
		sub.Get("/submissions/{submissionID}", httpserver.getSubmission)
		sub.Get("/leaderboard", httpserver.getLeaderboard)
		sub.Get("/events", httpserver.streamEvents)
	})
	r.Post("/challenges", httpserver.storeChallenge)
	r.Get("/languages", httpserver.listLanguages)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), uuid.New().String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// roomIDMiddleware tags the request-scoped logger with the room id so
// every handler log line under /rooms/{roomID} carries it.
func roomIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRoomID(r.Context(), chi.URLParam(r, "roomID"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
