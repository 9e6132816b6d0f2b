package image_handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLoggers()
}

func multipartRequest(t *testing.T, field, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="room.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formImage(t *testing.T, req *http.Request) (*multipart.FileHeader, error) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return FormImage(c)
}

func TestFormImage(t *testing.T) {
	fh, err := formImage(t, multipartRequest(t, "image", "image/jpeg", []byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.Equal(t, "room.jpg", fh.Filename)

	_, err = formImage(t, multipartRequest(t, "photo", "image/jpeg", []byte("x")))
	assert.ErrorIs(t, err, ErrImageRequired)

	_, err = formImage(t, multipartRequest(t, "image", "application/pdf", []byte("x")))
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestUploadForwardsFileAndAuth(t *testing.T) {
	imageID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-image/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		f, _, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, "jpeg-bytes", string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"image_id":"` + imageID.String() + `"}`))
	}))
	defer srv.Close()

	fh, err := formImage(t, multipartRequest(t, "image", "image/jpeg", []byte("jpeg-bytes")))
	require.NoError(t, err)

	img, err := NewImageService(srv.URL+"/").Upload(context.Background(), fh, "Bearer tok")
	require.NoError(t, err)
	assert.Equal(t, imageID, img.ImageID)
	assert.Equal(t, srv.URL+"/images/"+imageID.String(), img.URL)
}

func TestUploadRejectsBadResponses(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`},
		{"missing id", http.StatusOK, `{"url":"https://img.example.com/x"}`},
		{"not json", http.StatusOK, `ok`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			fh, err := formImage(t, multipartRequest(t, "image", "image/png", []byte("png")))
			require.NoError(t, err)
			_, err = NewImageService(srv.URL).Upload(context.Background(), fh, "")
			assert.Error(t, err)
		})
	}
}

func TestDelete(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		if calls == 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewImageService(srv.URL)
	assert.NoError(t, svc.Delete(context.Background(), uuid.Nil, ""))
	assert.Equal(t, 0, calls)
	assert.NoError(t, svc.Delete(context.Background(), uuid.New(), ""))
	assert.Error(t, svc.Delete(context.Background(), uuid.New(), ""))
}
