package trial

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/schedule"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// RouterOptions configures the trial HTTP endpoints. Nil fields are not mounted.
type RouterOptions struct {
	// Trigger runs the job and returns its summary.
	Trigger func(ctx context.Context) (Summary, error)
	Status  *StatusService
	Logger  *slog.Logger
}

// Router mounts:
//
//	POST /reconcile             run the lifecycle job, respond with Summary;
//	                            the run outlives a client disconnect
//	GET  /status/{accountID}    resolved status; ?include=plan requires a plan row
//
//	r.Mount("/trial", trial.Router(trial.RouterOptions{...}))
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	if opts.Trigger != nil {
		r.Post("/reconcile", reconcileHandler(opts.Trigger, log))
	}
	if opts.Status != nil {
		r.Get("/status/{accountID}", statusHandler(opts.Status, log))
	}
	return r
}

func reconcileHandler(trigger func(context.Context) (Summary, error), log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A started run finishes even if the client goes away.
		summary, err := trigger(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, schedule.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, err)
		case err != nil:
			log.LogAttrs(r.Context(), slog.LevelError, "reconcile trigger failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, err)
		default:
			writeJSON(w, http.StatusOK, summary)
		}
	}
}

func statusHandler(svc *StatusService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid account id"))
			return
		}

		view, err := svc.Status(r.Context(), accountID, r.URL.Query().Get("include") == "plan")
		switch {
		case errors.Is(err, subscription.ErrSubscriptionNotFound):
			writeError(w, http.StatusNotFound, err)
		case err != nil:
			log.LogAttrs(r.Context(), slog.LevelError, "failed to resolve trial status", logger.AccountID(accountID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, err)
		default:
			writeJSON(w, http.StatusOK, view)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
