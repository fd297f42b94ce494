package respond

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadRequest(rec, "Missing workspace_id parameter")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Bad Request","code":400,"message":"Missing workspace_id parameter"}`, rec.Body.String())
}

func TestWriteErrorOmitsEmptyMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusInternalServerError, "")
	assert.JSONEq(t, `{"error":"Internal Server Error","code":500}`, rec.Body.String())
}

func TestConnectionStatuses(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotConnected(rec, "gmail")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"connected":false,"error":"gmail is not connected"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteAuthExpired(rec, "github")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"connected":false,"error":"github authorization expired, please reconnect"}`, rec.Body.String())
}
