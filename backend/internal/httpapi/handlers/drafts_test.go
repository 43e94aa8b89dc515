package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"draftServer/backend/internal/draft"
	"draftServer/backend/internal/revision"
)

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"draft not found", draft.ErrDraftNotFound, 404},
		{"change not found", draft.ErrChangeNotFound, 404},
		{"forbidden", draft.ErrChangeForbidden, 403},
		{"conflict", draft.ErrChangeConflict, 409},
		{"nothing to undo", revision.ErrNothingToUndo, 409},
		{"nothing to redo", revision.ErrNothingToRedo, 409},
		{"markup upstream", draft.ErrMarkupUpstream, 502},
		{"unknown", errors.New("boom"), 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tc.err)
			if w.Code != tc.status {
				t.Fatalf("writeError(%v) status = %d, want %d", tc.err, w.Code, tc.status)
			}
		})
	}
}

func TestChangeIDParam_Invalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "changeId", Value: "not-a-number"}}

	if _, ok := changeIDParam(c); ok {
		t.Fatalf("changeIDParam() ok = true, want false")
	}
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
