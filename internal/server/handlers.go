package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/redeem"
	"github.com/dgnsrekt/camdirector/internal/roster"
	"github.com/dgnsrekt/camdirector/internal/state"
)

const maxIngressBody = 64 * 1024

const redemptionSchemaURL = "camdirector://server/redemption.json"

const redemptionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["user_name", "title"],
  "properties": {
    "broadcaster_id": {"type": "string"},
    "user_name": {"type": "string", "minLength": 1},
    "reward_id": {"type": "string"},
    "redemption_id": {"type": "string"},
    "title": {"type": "string", "minLength": 1},
    "prompt": {"type": "string"}
  }
}`

// Link reports whether the simulator is connected.
type Link interface {
	IsConnected() bool
}

// Roster exposes the per-car table.
type Roster interface {
	Table() []roster.Entry
}

// Options configures the handlers.
type Options struct {
	// PromptMarker, when set, must appear in a redemption's prompt for it to
	// be queued. Rewards owned by someone else are ignored this way.
	PromptMarker  string
	BroadcasterID string
}

type Handlers struct {
	opts   Options
	queue  *redeem.Queue
	state  state.Reader
	camera *camera.Controller
	link   Link
	roster Roster
	schema *jsonschema.Schema
	logger *zap.Logger
}

func NewHandlers(
	opts Options,
	queue *redeem.Queue,
	st state.Reader,
	cam *camera.Controller,
	link Link,
	rst Roster,
	logger *zap.Logger,
) (*Handlers, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(redemptionSchemaURL, strings.NewReader(redemptionSchema)); err != nil {
		return nil, fmt.Errorf("add redemption schema: %w", err)
	}
	schema, err := compiler.Compile(redemptionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile redemption schema: %w", err)
	}
	return &Handlers{
		opts:   opts,
		queue:  queue,
		state:  st,
		camera: cam,
		link:   link,
		roster: rst,
		schema: schema,
		logger: logger,
	}, nil
}

// RedeemResponse acknowledges an ingress request.
type RedeemResponse struct {
	Status       string `json:"status"`
	RedemptionID string `json:"redemption_id,omitempty"`
	QueueDepth   int    `json:"queue_depth"`
}

// StatusResponse is the director's externally visible state.
type StatusResponse struct {
	Connected  bool           `json:"connected"`
	Session    state.Session  `json:"session"`
	Target     state.Target   `json:"target"`
	Camera     camera.State   `json:"camera"`
	QueueDepth int            `json:"queue_depth"`
	Friends    []state.Friend `json:"friends"`
	Roster     []roster.Entry `json:"roster"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Redeem validates a redemption and queues it.
func (h *Handlers) Redeem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reading body failed"})
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return
	}
	if err := h.schema.Validate(payload); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	var req redeem.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if h.opts.PromptMarker != "" && !strings.Contains(req.Prompt, h.opts.PromptMarker) {
		h.logger.Debug("ignoring redemption without prompt marker",
			zap.String("title", req.Title),
			zap.String("user", req.UserName),
		)
		writeJSON(w, http.StatusOK, RedeemResponse{Status: "ignored", QueueDepth: h.queue.Len()})
		return
	}

	if req.RedemptionID == "" {
		req.RedemptionID = uuid.New().String()
	}
	if req.BroadcasterID == "" {
		req.BroadcasterID = h.opts.BroadcasterID
	}

	h.queue.Push(req)
	h.logger.Info("redemption queued",
		zap.String("user", req.UserName),
		zap.String("title", req.Title),
		zap.String("redemption_id", req.RedemptionID),
	)

	writeJSON(w, http.StatusAccepted, RedeemResponse{
		Status:       "queued",
		RedemptionID: req.RedemptionID,
		QueueDepth:   h.queue.Len(),
	})
}

// State reports the director's current view.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Connected:  h.link.IsConnected(),
		Session:    h.state.Session(),
		Target:     h.state.Target(),
		Camera:     h.camera.State(),
		QueueDepth: h.queue.Len(),
		Friends:    h.state.Friends(),
	}
	if h.roster != nil {
		resp.Roster = h.roster.Table()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
