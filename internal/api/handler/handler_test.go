package handler

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eip-site/internal/admin"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/response"
)

func init() { gin.SetMode(gin.TestMode) }

func TestFailMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", &service.ValidationError{Field: "email", Message: "Please enter a valid email address"}, http.StatusBadRequest, "Please enter a valid email address"},
		{"wrapped not found", fmt.Errorf("load post: %w", service.ErrNotFound), http.StatusNotFound, "Not found"},
		{"unknown entity", admin.ErrUnknownEntity, http.StatusNotFound, "Not found"},
		{"not editable", admin.ErrNotEditable, http.StatusMethodNotAllowed, admin.ErrNotEditable.Error()},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, response.GenericError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			fail(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestPageParams(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=abc&page_size=5", nil)
	assert.Equal(t, 1, pageParam(c))
	assert.Equal(t, 5, pageSizeParam(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3", nil)
	assert.Equal(t, 3, pageParam(c))
	assert.Equal(t, 0, pageSizeParam(c))
}

func TestFormUploadOptional(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("full_name", "Abebe"))
	fw, err := mw.CreateFormFile("resume", "cv.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", &buf)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	u, closeFn, err := formUpload(c, "additional_documents")
	require.NoError(t, err)
	assert.Nil(t, u)
	closeFn()

	u, closeFn, err = formUpload(c, "resume")
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, u)
	assert.Equal(t, "cv.pdf", u.Filename)
	assert.EqualValues(t, 4, u.Size)
}
