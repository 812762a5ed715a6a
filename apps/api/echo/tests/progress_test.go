package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/definite-d/zonosign-backend/apps/api/echo"
	"github.com/definite-d/zonosign-backend/core/progress"
)

func Test_progressApi_auth(t *testing.T) {
	srv, _ := setup(t)

	tests := []httpTest{
		{name: "overview: no token", method: http.MethodGet, path: "/v1/progress/overview", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "modules: bad token", method: http.MethodGet, path: "/v1/progress/modules", token: "lol.lol.lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "start: no token", method: http.MethodPost, path: "/v1/progress/lessons/1/start", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "complete: no token", method: http.MethodPost, path: "/v1/progress/lessons/1/complete", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty subject", method: http.MethodGet, path: "/v1/progress/overview", token: getToken(t, " "), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Kind: "unauthorized", Error: "user not authenticated"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}
}

func Test_progressApi_startLesson(t *testing.T) {
	srv, _ := setup(t)
	token := getToken(t, "user-1")
	path := func(id interface{}) string { return fmt.Sprintf("/v1/progress/lessons/%v/start", id) }

	tests := []httpTest{
		{name: "bad id", method: http.MethodPost, path: path("lol"), token: token, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "validation", Error: "invalid lesson id", Fields: map[string]string{"id": "id must be a positive integer"}})},
		{name: "unknown lesson", method: http.MethodPost, path: path(99), token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Kind: "not_found", Error: "lesson 99 not found"})},
		{name: "inactive lesson", method: http.MethodPost, path: path(4), token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Kind: "not_found", Error: "lesson 4 not found"})},
		{name: "start", method: http.MethodPost, path: path(1), token: token, wantCode: http.StatusCreated},
		{name: "start again", method: http.MethodPost, path: path(1), token: token, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "conflict", Error: "lesson already in progress"})},
		{name: "start another", method: http.MethodPost, path: path(2), token: token, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "conflict", Error: "another lesson already in progress"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, tt)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt, rec)

			var resp LessonResponse
			unmarshalObj(t, rec.Body.Bytes(), &resp)
			assert.Equal(t, "Lesson started", resp.Message)
			assert.Equal(t, "user-1", resp.UserID)
			assert.Equal(t, progress.StatusInProgress, resp.Status)
			assert.NotNil(t, resp.StartedAt)
		})
	}
}

func Test_progressApi_completeLesson(t *testing.T) {
	srv, svcs := setup(t)
	token := getToken(t, "user-1")
	path := "/v1/progress/lessons/1/complete"

	tests := []httpTest{
		{name: "not started", method: http.MethodPost, path: path, token: token, body: []byte(`{"score": 0.5}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "conflict", Error: "lesson not started"})},
		{name: "start", method: http.MethodPost, path: "/v1/progress/lessons/1/start", token: token, wantCode: http.StatusCreated},
		{name: "missing score", method: http.MethodPost, path: path, token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "validation", Error: "invalid request", Fields: map[string]string{"score": "this field is required"}})},
		{name: "score out of range", method: http.MethodPost, path: path, token: token, body: []byte(`{"score": 1.5}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "validation", Error: "invalid request", Fields: map[string]string{"score": "score must be between 0 and 1"}})},
		{name: "non numeric query score", method: http.MethodPost, path: path + "?score=lol", token: token, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "validation", Error: `strconv.ParseFloat: parsing "lol": invalid syntax`, Fields: map[string]string{"score": "score must be a number"}})},
		{name: "malformed body", method: http.MethodPost, path: path, token: token, body: []byte(`{"score": `), wantCode: http.StatusBadRequest},
		{name: "complete via query", method: http.MethodPost, path: path + "?score=0.8", token: token, wantCode: http.StatusOK},
		{name: "complete again", method: http.MethodPost, path: path, token: token, body: []byte(`{"score": 0.9}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Kind: "conflict", Error: "lesson already completed"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, tt)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt, rec)
		})
	}

	rec, err := svcs.progress.ModuleProgress(context.Background(), "user-1")
	require.NoError(t, err)
	if assert.Len(t, rec, 1) {
		assert.Equal(t, progress.StatusCompleted, rec[0].Status)
		assert.Equal(t, 0.8, *rec[0].Score)
	}
}

func Test_progressApi_overview(t *testing.T) {
	srv, svcs := setup(t)
	token := getToken(t, "user-1")
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := svcs.progress.StartLesson(ctx, "user-1", id)
		require.NoError(t, err)
		_, err = svcs.progress.CompleteLesson(ctx, "user-1", id, 1)
		require.NoError(t, err)
	}
	first, current := int64(1), int64(2)

	tests := []httpTest{
		{
			name: "user with progress", method: http.MethodGet, path: "/v1/progress/overview", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, progress.Overview{TotalModules: 2, CompletedModules: 1, CurrentModule: &current, OverallProgress: 66.67}),
		},
		{
			name: "new user", method: http.MethodGet, path: "/v1/progress/overview", token: getToken(t, "user-2"), wantCode: http.StatusOK,
			wantData: marchallObj(t, progress.Overview{TotalModules: 2, CurrentModule: &first}),
		},
		{name: "modules: new user", method: http.MethodGet, path: "/v1/progress/modules", token: getToken(t, "user-2"), wantCode: http.StatusOK, wantData: []byte(`[]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/progress/modules", token)
	srv.ServeHTTP(rec, req)
	var records []progress.Record
	unmarshalObj(t, rec.Body.Bytes(), &records)
	if assert.Len(t, records, 2) {
		assert.Equal(t, int64(2), records[0].LessonID)
	}
}
