package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(routes Routes) *Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRouter(routes, logger)
}

func call(t *testing.T, router *Router, req Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr, resp
}

func TestRouter_Success(t *testing.T) {
	router := testRouter(Routes{
		"test.echo": func(_ context.Context, params json.RawMessage) (any, error) {
			var s string
			if err := json.Unmarshal(params, &s); err != nil {
				return nil, err
			}
			return s, nil
		},
	})

	rr, resp := call(t, router, Request{Method: "test.echo", Params: json.RawMessage(`"hello"`), ID: 42})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, uint64(42), resp.ID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "hello", resp.Result)
}

func TestRouter_OperationError(t *testing.T) {
	router := testRouter(Routes{
		"test.fail": func(_ context.Context, _ json.RawMessage) (any, error) {
			return nil, errors.New("something broke")
		},
	})

	rr, resp := call(t, router, Request{Method: "test.fail", ID: 7})

	assert.Equal(t, http.StatusOK, rr.Code, "processing errors keep transport success")
	assert.Equal(t, uint64(7), resp.ID)
	assert.Equal(t, "something broke", resp.Error)
	assert.Nil(t, resp.Result)
}

func TestRouter_MethodNotFound(t *testing.T) {
	router := testRouter(Routes{})

	rr, resp := call(t, router, Request{Method: "no.such.method", ID: 3})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, uint64(3), resp.ID)
	assert.Equal(t, "method 'no.such.method' not found", resp.Error)
}

func TestRouter_BadBody(t *testing.T) {
	router := testRouter(Routes{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not json"))))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_NilParams(t *testing.T) {
	router := testRouter(Routes{
		"test.noparams": func(_ context.Context, params json.RawMessage) (any, error) {
			assert.Empty(t, params)
			return "done", nil
		},
	})

	_, resp := call(t, router, Request{Method: "test.noparams", ID: 1})

	assert.Equal(t, "done", resp.Result)
	assert.Empty(t, resp.Error)
}
