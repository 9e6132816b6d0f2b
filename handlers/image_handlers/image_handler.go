// Package image_handlers forwards listing photo uploads to the image service.
package image_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
)

const maxImageSize = 10 << 20

var (
	ErrImageRequired = errors.New("an image file is required in the 'image' field")
	ErrImageTooLarge = errors.New("image exceeds 10MB")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
)

// UploadedImage is what the image service returns for a stored file.
type UploadedImage struct {
	ImageID uuid.UUID `json:"image_id"`
	URL     string    `json:"url"`
}

// ImageService talks to the standalone image store over HTTP.
type ImageService struct {
	baseURL string
	client  *http.Client
}

func NewImageService(baseURL string) *ImageService {
	return &ImageService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FormImage pulls the "image" part out of a multipart request and checks it
// before anything is sent upstream.
func FormImage(c *gin.Context) (*multipart.FileHeader, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrImageRequired
		}
		return nil, fmt.Errorf("could not process the provided image file: %w", err)
	}
	if fileHeader.Size > maxImageSize {
		return nil, ErrImageTooLarge
	}
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, ErrNotAnImage
	}
	return fileHeader, nil
}

// Upload stores the file and returns its id and public URL. authHeader is
// forwarded so the image service can attribute the upload.
func (s *ImageService) Upload(ctx context.Context, fileHeader *multipart.FileHeader, authHeader string) (*UploadedImage, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	body, contentType, err := prepareMultipartRequest(file, fileHeader)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/upload-image/", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to send request to image service: %v", err)
		return nil, fmt.Errorf("failed to send request to image service: %w", err)
	}
	defer resp.Body.Close()

	img, err := processImageResponse(resp)
	if err != nil {
		return nil, err
	}
	if img.URL == "" {
		img.URL = s.baseURL + "/images/" + img.ImageID.String()
	}
	return img, nil
}

// Delete removes an image. A missing image counts as deleted.
func (s *ImageService) Delete(ctx context.Context, imageID uuid.UUID, authHeader string) error {
	if imageID == uuid.Nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/images/"+imageID.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to send DELETE request to image service for ID %s: %v", imageID, err)
		return fmt.Errorf("failed to send delete request to image service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		logger.InfoLogger.Infof("Requested deletion of image %s from image service", imageID)
		return nil
	}
	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	logger.ErrorLogger.Errorf("Image service returned an error on delete for ID %s. Status: %d, Body: %s", imageID, resp.StatusCode, string(responseBody))
	return fmt.Errorf("image service returned status %d during deletion", resp.StatusCode)
}

func prepareMultipartRequest(file multipart.File, fileHeader *multipart.FileHeader) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, fileHeader.Filename))
	h.Set("Content-Type", fileHeader.Header.Get("Content-Type"))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func processImageResponse(resp *http.Response) (*UploadedImage, error) {
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from image service: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("image service returned error: %s", string(responseBody))
	}
	var img UploadedImage
	if err := json.Unmarshal(responseBody, &img); err != nil {
		return nil, fmt.Errorf("failed to parse response from image service: %w", err)
	}
	if img.ImageID == uuid.Nil {
		return nil, errors.New("image service returned invalid image ID")
	}
	return &img, nil
}
