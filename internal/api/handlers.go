package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/config"
	"github.com/mattxander12/forex-trader/internal/job"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// SubmitResponse is returned by the job submission endpoints.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

func (s *Server) submitBacktest(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, types.JobKindBacktest)
}

func (s *Server) submitTrain(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, types.JobKindTrain)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, kind types.JobKind) {
	overrides, err := decodeOverrides(r.Body)
	if err != nil {
		writeError(w, err)

		return
	}

	var fn job.Func
	if kind == types.JobKindTrain {
		fn, err = s.runner.Train(overrides)
	} else {
		fn, err = s.runner.Backtest(overrides)
	}

	if err != nil {
		writeError(w, err)

		return
	}

	jobID := s.dispatcher.Submit(kind, fn)
	s.log.Info("Accepted job", zap.String("job_id", jobID), zap.String("kind", string(kind)))

	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: jobID})
}

// decodeOverrides reads an optional JSON body. An empty body means no
// overrides.
func decodeOverrides(body io.Reader) (config.Overrides, error) {
	var overrides config.Overrides

	if body == nil {
		return overrides, nil
	}

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&overrides); err != nil && err != io.EOF {
		return config.Overrides{}, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid request body", err)
	}

	return overrides, nil
}

// result returns the last buffered payload of a live job, the stored final
// payload of a finished one, or an empty object.
func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	if event, ok := s.hub.Last(jobID); ok {
		writeJSON(w, http.StatusOK, event.Payload)

		return
	}

	data, err := s.runner.Store().Get(r.Context(), jobID)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeJobNotFound) {
			s.log.Warn("Failed to read stored result", zap.String("job_id", jobID), zap.Error(err))
		}

		writeJSON(w, http.StatusOK, s.hub.GetLast(jobID))

		return
	}

	writeRawJSON(w, http.StatusOK, data)
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	j, err := s.dispatcher.Get(jobID)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Config())
}

func (s *Server) configSchema(w http.ResponseWriter, _ *http.Request) {
	data, err := config.SchemaJSON()
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeUnknown, "failed to generate config schema", err))

		return
	}

	writeRawJSON(w, http.StatusOK, data)
}
