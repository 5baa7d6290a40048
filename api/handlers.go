package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

const (
	msgNotFound = "job not found"
	msgNotReady = "not ready"
)

func (a *API) runAsync(w http.ResponseWriter, r *http.Request) {
	var req job.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	req = req.Normalize()
	if err := req.Validate(a.bounds); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := a.pool.Enqueue(r.Context(), req)
	if err != nil {
		if errors.Is(err, jobwatch.ErrQueueFull) {
			respondDetail(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		a.logger.Error("enqueue failed", slog.String("error", err.Error()))
		respondDetail(w, http.StatusInternalServerError, "could not accept job")
		return
	}

	respondJSON(w, http.StatusOK, job.Submission{Status: job.StatusAccepted, JobID: id.String()})
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, rec.Snapshot())
}

func (a *API) result(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.lookup(w, r)
	if !ok {
		return
	}
	if rec.Lifecycle != job.LifecycleDone {
		respondJSON(w, http.StatusOK, job.Result{Status: rec.Lifecycle.Wire(), Detail: msgNotReady})
		return
	}
	respondJSON(w, http.StatusOK, job.Result{Status: job.StatusOK, Result: rec.Result})
}

func (a *API) lookup(w http.ResponseWriter, r *http.Request) (*job.Record, bool) {
	id := job.Handle(chi.URLParam(r, "jobID"))
	rec, err := a.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobwatch.ErrJobNotFound) {
			respondDetail(w, http.StatusNotFound, msgNotFound)
			return nil, false
		}
		a.logger.Error("job lookup failed",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()),
		)
		respondDetail(w, http.StatusInternalServerError, "job lookup failed")
		return nil, false
	}
	return rec, true
}
