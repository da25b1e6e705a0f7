package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/legalize/pkg/buildinfo"
	pkgerr "github.com/matzehuels/legalize/pkg/errors"
	pkgio "github.com/matzehuels/legalize/pkg/io"
	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/pipeline"
)

// LegalizeRequest is the body of POST /v1/legalize.
type LegalizeRequest struct {
	Design  json.RawMessage `json:"design"`
	Options RequestOptions  `json:"options"`
}

// RequestOptions are the tunables a client may set. MaxSeconds is capped by
// the server's configured maximum.
type RequestOptions struct {
	Epsilon       float64            `json:"epsilon,omitempty"`
	MaxSeconds    float64            `json:"max_seconds,omitempty"`
	SkipAnneal    bool               `json:"skip_anneal,omitempty"`
	Seed          uint64             `json:"seed,omitempty"`
	Workers       int                `json:"workers,omitempty"`
	MaxIterations int                `json:"max_iterations,omitempty"`
	Schedule      *legalize.Schedule `json:"schedule,omitempty"`
	Formats       []string           `json:"formats,omitempty"`
	Vectors       bool               `json:"vectors,omitempty"`
	Refresh       bool               `json:"refresh,omitempty"`
}

// LegalizeResponse is the body of a successful POST /v1/legalize.
type LegalizeResponse struct {
	RunID      string             `json:"run_id"`
	Design     string             `json:"design"`
	DesignHash string             `json:"design_hash"`
	CacheHit   bool               `json:"cache_hit"`
	Result     *legalize.Result   `json:"result"`
	Cells      []CellPosition     `json:"cells"`
	Artifacts  map[string]string  `json:"artifacts,omitempty"` // xlsx is base64
	Timings    map[string]float64 `json:"timings_seconds"`
}

// CellPosition is a cell's legalized position.
type CellPosition struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type errorBody struct {
	Code      pkgerr.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleLegalize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBody)

	var req LegalizeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, pkgerr.Wrap(pkgerr.ErrCodeInvalidInput, err, "request body exceeds %d bytes", s.cfg.MaxBody))
			return
		}
		writeError(w, r, pkgerr.Wrap(pkgerr.ErrCodeInvalidFormat, err, "decode request"))
		return
	}
	if len(req.Design) == 0 {
		writeError(w, r, pkgerr.New(pkgerr.ErrCodeInvalidInput, "design is required"))
		return
	}
	d, err := pkgio.ReadJSON(bytes.NewReader(req.Design))
	if err != nil {
		writeError(w, r, pkgerr.Wrap(pkgerr.ErrCodeInvalidDesign, err, "invalid design"))
		return
	}

	opts := s.pipelineOptions(req.Options)
	opts.Design = d
	opts.Input = d.Name

	res, err := s.cfg.Runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := LegalizeResponse{
		RunID:      res.RunID,
		Design:     d.Name,
		DesignHash: res.DesignHash,
		CacheHit:   res.CacheHit,
		Result:     res.Legalize,
		Cells:      make([]CellPosition, len(d.Cells)),
		Artifacts:  make(map[string]string, len(res.Artifacts)),
		Timings: map[string]float64{
			"load":     res.Stats.LoadTime.Seconds(),
			"legalize": res.Stats.LegalizeTime.Seconds(),
			"write":    res.Stats.WriteTime.Seconds(),
		},
	}
	for i := range d.Cells {
		c := &d.Cells[i]
		resp.Cells[i] = CellPosition{Name: c.Name, X: c.X, Y: c.Y}
	}
	for format, data := range res.Artifacts {
		if format == pipeline.FormatXLSX {
			resp.Artifacts[format] = base64.StdEncoding.EncodeToString(data)
			continue
		}
		resp.Artifacts[format] = string(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

// pipelineOptions maps request options onto pipeline options, capping the
// annealing budget. A request without max_seconds gets the cap.
func (s *Server) pipelineOptions(o RequestOptions) pipeline.Options {
	budget := s.cfg.MaxDuration
	if o.MaxSeconds > 0 {
		if d := time.Duration(o.MaxSeconds * float64(time.Second)); d < budget {
			budget = d
		}
	}
	opts := pipeline.Options{
		Epsilon:       o.Epsilon,
		MaxDuration:   budget,
		SkipAnneal:    o.SkipAnneal,
		Seed:          o.Seed,
		Workers:       o.Workers,
		MaxIterations: o.MaxIterations,
		Formats:       o.Formats,
		Vectors:       o.Vectors,
		Refresh:       o.Refresh,
	}
	if o.Schedule != nil {
		opts.Schedule = *o.Schedule
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, pkgerr.HTTPStatus(err), errorBody{
		Code:      codeOf(err),
		Message:   pkgerr.UserMessage(err),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func codeOf(err error) pkgerr.Code {
	if c := pkgerr.GetCode(err); c != "" {
		return c
	}
	return pkgerr.ErrCodeInternal
}

func errNotFound(path string) error {
	return pkgerr.New(pkgerr.ErrCodeNotFound, "no route for %s", path)
}
