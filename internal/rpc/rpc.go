// Package rpc implements the JSON-RPC-flavored envelope the comment engine
// speaks: one HTTP endpoint, requests shaped {method, params, id}, responses
// shaped {result | error, id}. Processing failures travel inside the envelope
// as error strings; the transport status stays 200 so the caller can always
// correlate a response with its request id.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Request is the wire envelope of a single call. Params stays raw until the
// method's handler decodes it into its typed parameter struct.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     uint64          `json:"id"`
}

// Response is the wire envelope of a single reply, tagged with the request id.
// Exactly one of Result and Error is populated.
type Response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ID     uint64 `json:"id"`
}

// HandlerFunc decodes the raw params of one method and runs the operation.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Routes maps method names to their handlers. The table is assembled once at
// startup; dispatch never mutates it.
type Routes map[string]HandlerFunc

// redactedMethods carry raw image bytes in params or result; the audit log
// records a placeholder instead.
var redactedMethods = map[string]bool{
	"image.save_with_id": true,
	"image.load":         true,
}

// Router dispatches envelope requests against a fixed method table.
type Router struct {
	routes Routes
	logger *slog.Logger
}

// NewRouter creates a router over the given method table.
func NewRouter(routes Routes, logger *slog.Logger) *Router {
	return &Router{routes: routes, logger: logger}
}

// ServeHTTP handles one envelope request. A body that does not parse is the
// only transport-level failure; everything after that, unknown methods
// included, answers 200 with the error inside the envelope.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "can't parse request body", http.StatusBadRequest)
		return
	}

	resp := rt.dispatch(r.Context(), req)
	rt.audit(req, resp)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rt.logger.Error("failed to write response", "method", req.Method, "error", err)
	}
}

func (rt *Router) dispatch(ctx context.Context, req Request) Response {
	handler, ok := rt.routes[req.Method]
	if !ok {
		return Response{Error: fmt.Sprintf("method '%s' not found", req.Method), ID: req.ID}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		return Response{Error: err.Error(), ID: req.ID}
	}
	return Response{Result: result, ID: req.ID}
}

func (rt *Router) audit(req Request, resp Response) {
	params := string(req.Params)
	result := resp.Result
	if redactedMethods[req.Method] {
		params = "<binary>"
		if result != nil {
			result = "<binary>"
		}
	}

	if resp.Error != "" {
		rt.logger.Warn("rpc call failed",
			"method", req.Method, "id", req.ID, "params", params, "error", resp.Error)
		return
	}
	rt.logger.Info("rpc call",
		"method", req.Method, "id", req.ID, "params", params, "result", result)
}
