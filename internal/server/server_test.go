package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	noop := func(ctx context.Context, job Job, progress func(string, float64)) (string, error) {
		return "", nil
	}

	s, err := New(context.Background(), Options{
		Workers:  1,
		Defaults: JobDefaults{Intermediates: 3, OutputVideo: "output.mp4"},
	}, newTestStore(t), noop)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, r http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	r := newTestServer(t).Router()
	w := do(t, r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"ping"}`, w.Body.String())
}

func TestAddJobUsesDefaults(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()
	folder := t.TempDir()

	w := do(t, r, http.MethodPost, "/queue", `{"folder":"`+jsonEscape(folder)+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.NotZero(t, job.ID)
	assert.Equal(t, folder, job.Folder)
	assert.Equal(t, 3, job.Intermediates)
	assert.Equal(t, "output.mp4", job.OutputVideo)

	w = do(t, r, http.MethodPost, "/queue", `{"folder":"`+jsonEscape(folder)+`","intermediates":0,"outputVideo":"x.mp4","upscale":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, 0, job.Intermediates)
	assert.True(t, job.Upscale)

	w = do(t, r, http.MethodGet, "/queue", "")
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)

	stored, err := s.store.GetJobs()
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestAddJobRejectsBadInput(t *testing.T) {
	r := newTestServer(t).Router()

	tests := []string{
		`{}`,
		`not json`,
		`{"folder":"/definitely/not/here"}`,
		`{"folder":"` + jsonEscape(t.TempDir()) + `","intermediates":-1}`,
	}
	for _, body := range tests {
		w := do(t, r, http.MethodPost, "/queue", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestDeleteJob(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	w := do(t, r, http.MethodPost, "/queue", `{"folder":"`+jsonEscape(t.TempDir())+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodDelete, "/queue/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/queue/999", "").Code)

	w = do(t, r, http.MethodDelete, "/queue/"+jsonNumber(job.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.queue.Len())

	stored, err := s.store.GetJobs()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestListFailedAndWorkers(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	job := Job{Folder: "f", OutputVideo: "o.mp4"}
	_, err := s.store.InsertJob(&job)
	require.NoError(t, err)
	require.NoError(t, s.store.FailJob(&job, "out", "boom"))

	w := do(t, r, http.MethodGet, "/failed", "")
	require.Equal(t, http.StatusOK, w.Code)
	var failed []FailedJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	w = do(t, r, http.MethodGet, "/workers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var workers []WorkerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &workers))
	assert.Len(t, workers, 1)
}

func TestWebsocketReceivesQueueUpdates(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.hub.ClientCount(ctx) == 1
	}, 5*time.Second, 5*time.Millisecond)

	s.queue.Enqueue(Job{ID: 9, Folder: "f"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var update WsQueueUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "queue_update", update.Type)
	require.Len(t, update.Jobs, 1)
	assert.EqualValues(t, 9, update.Jobs[0].ID)
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
