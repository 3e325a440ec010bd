package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vocab-battle/internal/app"
	"vocab-battle/internal/domain"
	"vocab-battle/internal/match"
	"vocab-battle/internal/report"

	"github.com/sirupsen/logrus"
)

// RESTHandler exposes match lifecycle and results over plain HTTP.
type RESTHandler struct {
	service *app.BattleService
	log     *logrus.Entry
	now     func() time.Time
}

func NewRESTHandler(service *app.BattleService, log *logrus.Entry) *RESTHandler {
	return &RESTHandler{service: service, log: log, now: time.Now}
}

// Register mounts the routes on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /classes", h.classes)
	mux.HandleFunc("POST /classes/{id}/refresh", h.refreshRoster)
	mux.HandleFunc("POST /matches", h.start)
	mux.HandleFunc("GET /matches/{id}", h.state)
	mux.HandleFunc("DELETE /matches/{id}", h.abandon)
	mux.HandleFunc("GET /matches/{id}/results", h.results)
	mux.HandleFunc("GET /matches/{id}/report.csv", h.reportCSV)
}

type startRequest struct {
	ClassID             string   `json:"classId"`
	StudentIDs          []string `json:"studentIds"`
	QuestionsPerStudent int      `json:"questionsPerStudent"`
	MaxTimeMs           int64    `json:"maxTimeMs"`
	BasePoints          int      `json:"basePoints"`
	MaxBonus            int      `json:"maxBonus"`
}

type classesView struct {
	Classes []string `json:"classes"`
}

func (h *RESTHandler) classes(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.Classes(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classesView{Classes: classes})
}

func (h *RESTHandler) refreshRoster(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshRoster(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	state, err := h.service.Start(r.Context(), app.StartRequest{
		ClassID:    req.ClassID,
		StudentIDs: req.StudentIDs,
		Config: domain.MatchConfig{
			QuestionsPerStudent: req.QuestionsPerStudent,
			MaxTime:             time.Duration(req.MaxTimeMs) * time.Millisecond,
			BasePoints:          req.BasePoints,
			MaxBonus:            req.MaxBonus,
		},
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newStateView(state))
}

func (h *RESTHandler) state(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(state))
}

func (h *RESTHandler) abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Abandon(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) results(w http.ResponseWriter, r *http.Request) {
	res, err := h.loadResults(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultsView(res))
}

// reportCSV renders the stats table, or every answer with ?detail=answers.
func (h *RESTHandler) reportCSV(w http.ResponseWriter, r *http.Request) {
	res, err := h.loadResults(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	render := report.StatsCSV
	if r.URL.Query().Get("detail") == "answers" {
		render = report.AnswersCSV
	}
	body, err := render(res.Stats)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	_, _ = w.Write(body)
}

func (h *RESTHandler) loadResults(r *http.Request) (domain.Results, error) {
	window, err := match.WindowFor(r.URL.Query().Get("period"), h.now())
	if err != nil {
		return domain.Results{}, err
	}
	return h.service.Results(r.Context(), r.PathValue("id"), window)
}

func (h *RESTHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
