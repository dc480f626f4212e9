package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Strob0t/SecondGuess/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Decisions *service.DecisionService

	// Health probes for infrastructure dependencies. Nil probes are
	// reported as "disabled".
	DBPing     func(ctx context.Context) error
	QueueOK    func() bool
	ReasonerOK func(ctx context.Context) (bool, error)
}

type evaluateRequest struct {
	Decision string `json:"decision"`
	Context  string `json:"context"`
}

// SubmitDecision runs the full pipeline on a new decision and persists the
// result as version 1.
func (h *Handlers) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[evaluateRequest](w, r)
	if !ok {
		return
	}
	if req.Decision == "" {
		writeError(w, http.StatusBadRequest, "decision is required")
		return
	}

	rec, err := h.Decisions.Submit(r.Context(), req.Decision, req.Context)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ReevaluateDecision runs a fresh evaluation of an existing decision with
// updated context and persists it as the next version.
func (h *Handlers) ReevaluateDecision(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[evaluateRequest](w, r)
	if !ok {
		return
	}
	if req.Decision == "" {
		writeError(w, http.StatusBadRequest, "decision is required")
		return
	}

	rec, err := h.Decisions.Reevaluate(r.Context(), id, req.Decision, req.Context)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetLatestDecision returns the most recent version of a decision.
func (h *Handlers) GetLatestDecision(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Decisions.GetLatest(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListDecisionVersions returns summaries of all versions of a decision.
func (h *Handlers) ListDecisionVersions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Decisions.ListVersions(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetDecisionVersion returns one stored version of a decision.
func (h *Handlers) GetDecisionVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(urlParam(r, "version"))
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, "version must be a positive integer")
		return
	}

	rec, err := h.Decisions.Get(r.Context(), urlParam(r, "id"), version)
	if err != nil {
		writeDomainError(w, err, "decision version not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CompareDecisionVersions returns the deltas between two versions.
func (h *Handlers) CompareDecisionVersions(w http.ResponseWriter, r *http.Request) {
	v1, err1 := strconv.Atoi(r.URL.Query().Get("v1"))
	v2, err2 := strconv.Atoi(r.URL.Query().Get("v2"))
	if err1 != nil || err2 != nil || v1 < 1 || v2 < 1 {
		writeError(w, http.StatusBadRequest, "v1 and v2 query parameters must be positive integers")
		return
	}

	cmp, err := h.Decisions.Compare(r.Context(), urlParam(r, "id"), v1, v2)
	if err != nil {
		writeDomainError(w, err, "decision version not found")
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

type healthResponse struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	NATS     string `json:"nats"`
	Reasoner string `json:"reasoner"`
}

// Health reports the status of the service and its dependencies.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Postgres: "disabled",
		NATS:     "disabled",
		Reasoner: "disabled",
	}

	if h.DBPing != nil {
		resp.Postgres = "ok"
		if err := h.DBPing(r.Context()); err != nil {
			resp.Postgres = "down"
			resp.Status = "degraded"
		}
	}
	if h.QueueOK != nil {
		resp.NATS = "ok"
		if !h.QueueOK() {
			resp.NATS = "down"
			resp.Status = "degraded"
		}
	}
	if h.ReasonerOK != nil {
		resp.Reasoner = "ok"
		if ok, _ := h.ReasonerOK(r.Context()); !ok {
			resp.Reasoner = "down"
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
