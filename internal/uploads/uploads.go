// Package uploads sends product and profile images to the external image host.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
)

const (
	statusSuccess    = "success"
	msgInvalidType   = "Invalid file type. Use JPEG, PNG, GIF, or WebP."
	msgUploadFailed  = "Upload failed"
	defaultMaxSizeMB = 10
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// File is an image read into memory ahead of upload.
type File struct {
	Name string
	Data []byte
}

// Uploaded describes a file stored on the image host.
type Uploaded struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type BatchItem struct {
	URL          string `json:"url"`
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
}

type BatchError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BatchResult reports a sequential multi-file upload.
type BatchResult struct {
	Success  bool         `json:"success"`
	Uploaded []BatchItem  `json:"uploaded"`
	Errors   []BatchError `json:"errors"`
	URLs     []string     `json:"urls"`
}

type hostResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	File    *Uploaded `json:"file"`
}

// ServiceParams groups dependencies for the upload client.
type ServiceParams struct {
	Config config.UploadConfig
	Logger *logger.Logger
	// Options are passed to the host client, e.g. a custom http.Client in tests.
	Options []apiclient.Option
}

type Service interface {
	ValidateFile(file File) error
	UploadSingle(ctx context.Context, file File) (*Uploaded, error)
	UploadMultiple(ctx context.Context, files []File) (*BatchResult, error)
}

type service struct {
	host      *apiclient.Client
	maxSizeMB int
	logg      *logger.Logger
}

// NewService builds the upload client. The image host is unauthenticated.
func NewService(params ServiceParams) (Service, error) {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	opts := append([]apiclient.Option{apiclient.WithLogger(logg)}, params.Options...)
	host, err := apiclient.New(params.Config.URL, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "upload url is required")
	}
	maxSizeMB := params.Config.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	return &service{host: host, maxSizeMB: maxSizeMB, logg: logg}, nil
}

// ValidateFile accepts JPEG, PNG, GIF and WebP images up to the configured size.
// The type is sniffed from the content rather than trusted from the name.
func (s *service) ValidateFile(file File) error {
	_, err := s.validate(file)
	return err
}

func (s *service) validate(file File) (*mimetype.MIME, error) {
	detected := mimetype.Detect(file.Data)
	if !allowedType(detected) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidType).
			WithDetails(map[string]string{"file": file.Name, "detected": detected.String()})
	}
	if int64(len(file.Data)) > int64(s.maxSizeMB)*1024*1024 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("File too large. Max size is %dMB.", s.maxSizeMB))
	}
	return detected, nil
}

func allowedType(detected *mimetype.MIME) bool {
	for _, allowed := range allowedTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

// UploadSingle validates and posts one file as multipart field "file".
func (s *service) UploadSingle(ctx context.Context, file File) (*Uploaded, error) {
	detected, err := s.validate(file)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(strings.TrimSpace(file.Name))

	var resp hostResponse
	err = s.host.Upload(ctx, "", apiclient.FilePart{
		FileName:    name,
		ContentType: detected.String(),
		Content:     bytes.NewReader(file.Data),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != statusSuccess || resp.File == nil {
		message := resp.Message
		if message == "" {
			message = msgUploadFailed
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, message)
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"file": name, "url": resp.File.URL}), "image uploaded")
	return resp.File, nil
}

// UploadMultiple uploads files one at a time. A failed file does not stop the batch;
// every failure is reported in the result and combined into the returned error.
func (s *service) UploadMultiple(ctx context.Context, files []File) (*BatchResult, error) {
	result := &BatchResult{
		Uploaded: []BatchItem{},
		Errors:   []BatchError{},
		URLs:     []string{},
	}
	var errs error
	for _, file := range files {
		uploaded, err := s.UploadSingle(ctx, file)
		if err != nil {
			result.Errors = append(result.Errors, BatchError{
				File:  file.Name,
				Error: pkgerrors.UserMessage(err, msgUploadFailed),
			})
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", file.Name, err))
			continue
		}
		result.Uploaded = append(result.Uploaded, BatchItem{URL: uploaded.URL, Name: uploaded.Name, OriginalName: file.Name})
		result.URLs = append(result.URLs, uploaded.URL)
	}
	result.Success = len(result.Errors) == 0
	if !result.Success {
		s.logg.WarnErr(ctx, "some images failed to upload", errs)
	}
	return result, errs
}
