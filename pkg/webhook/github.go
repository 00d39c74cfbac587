package webhook

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/webhooks/v6/github"

	"bountyhooks/internal"
)

const (
	eventHeader    = "X-GitHub-Event"
	deliveryHeader = "X-GitHub-Delivery"
	requestHeader  = "X-Request-Id"
)

// GitHubHandler authenticates GitHub deliveries and dispatches them.
type GitHubHandler struct {
	verifier   *Verifier
	dispatcher *Dispatcher
	logger     *log.Logger
	maxBody    int64
	metrics    internal.Metrics
}

// NewGitHubHandler creates a GitHubHandler.
func NewGitHubHandler(verifier *Verifier, dispatcher *Dispatcher, logger *log.Logger, maxBody int64) *GitHubHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GitHubHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
		maxBody:    maxBody,
	}
}

// ServeHTTP rejects unauthenticated deliveries with 401 and acknowledges
// every authenticated one with 200, whatever the processing outcome.
func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	reqID := requestID(r)
	w.Header().Set(requestHeader, reqID)
	logger := internal.WithRequestID(h.logger, reqID)

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Printf("github read body failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		h.metrics.IncSignatureFailure()
		logger.Printf("github payload is not json: %v", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !h.verifier.Verify(r.Context(), env.Repository.FullName, rawBody, r.Header.Get(SignatureHeader)) {
		h.metrics.IncSignatureFailure()
		logger.Printf("github signature rejected repo=%s", env.Repository.FullName)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event := github.Event(r.Header.Get(eventHeader))
	h.metrics.IncWebhook(string(event))
	h.dispatcher.Dispatch(r.Context(), reqID, event, rawBody)
	w.WriteHeader(http.StatusOK)
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(deliveryHeader); id != "" {
		return id
	}
	if id := r.Header.Get(requestHeader); id != "" {
		return id
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return watermill.NewUUID()
}
