package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/xtding233/starforce/internal/starforce"
)

type errResp struct {
	Err string `json:"err"`
}

// HTTPHandler serves the JSON query endpoints.
func (s *Service) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /simulate", s.handleSimulate)
	mux.HandleFunc("GET /percentile", s.handlePercentile)
	mux.HandleFunc("GET /probability", s.handleProbability)
	mux.HandleFunc("GET /histogram", s.handleHistogram)
	mux.HandleFunc("GET /overview", s.handleOverview)
	mux.HandleFunc("GET /fit", s.handleFit)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func parseFloat(r *http.Request, key string) (float64, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

func parseInt(r *http.Request, key string) (int, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

func parseBool(r *http.Request, key string) (bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, ""
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, "invalid " + key
	}
	return v, ""
}

// requireInt reads a mandatory integer parameter.
func requireInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	v, ok, msg := parseInt(r, key)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return 0, false
	}
	if !ok {
		http.Error(w, "missing param "+key, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func requireFloat(w http.ResponseWriter, r *http.Request, key string) (float64, bool) {
	v, ok, msg := parseFloat(r, key)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return 0, false
	}
	if !ok {
		http.Error(w, "missing param "+key, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func (s *Service) handleSimulate(w http.ResponseWriter, r *http.Request) {
	start, ok := requireInt(w, r, "start")
	if !ok {
		return
	}
	end, ok := requireInt(w, r, "end")
	if !ok {
		return
	}
	lvl, ok := requireInt(w, r, "lvl")
	if !ok {
		return
	}
	n, ok := requireInt(w, r, "n")
	if !ok {
		return
	}
	parallel, msg := parseBool(r, "parallel")
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	save, msg := parseBool(r, "save")
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	var seed uint64
	if raw := r.URL.Query().Get("seed"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid seed", http.StatusBadRequest)
			return
		}
		seed = v
	}

	res, err := s.Simulate(r.Context(), SimulateParams{
		Start:     start,
		End:       end,
		ItemLevel: lvl,
		Trials:    n,
		Parallel:  parallel,
		Ruleset:   r.URL.Query().Get("ruleset"),
		Seed:      seed,
		Save:      save,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := summaryView(res)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Service) handlePercentile(w http.ResponseWriter, r *http.Request) {
	p, ok := requireFloat(w, r, "p")
	if !ok {
		return
	}
	q := r.URL.Query()
	v, err := s.Percentile(r.Context(), q.Get("id"), p, q.Get("metric"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": v})
}

func (s *Service) handleProbability(w http.ResponseWriter, r *http.Request) {
	c, ok := requireFloat(w, r, "c")
	if !ok {
		return
	}
	q := r.URL.Query()
	v, err := s.Probability(r.Context(), q.Get("id"), c, q.Get("metric"), q.Get("dir"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"probability": v})
}

func (s *Service) handleHistogram(w http.ResponseWriter, r *http.Request) {
	bins, ok, msg := parseInt(r, "bins")
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if !ok {
		bins = 10
	}
	q := r.URL.Query()
	h, err := s.Histogram(r.Context(), q.Get("id"), q.Get("metric"), bins)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, histogramView(h))
}

func (s *Service) handleOverview(w http.ResponseWriter, r *http.Request) {
	text, err := s.Overview(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text})
}

func (s *Service) handleFit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fit, err := s.Fit(r.Context(), q.Get("id"), q.Get("metric"), q.Get("model"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fitView(fit))
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("http request failed", "error", err)
		msg = "an unexpected error occurred"
	}
	writeJSON(w, code, errResp{Err: msg})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, starforce.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, starforce.ErrRuleset):
		return http.StatusPreconditionFailed
	case isNotFound(err):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
