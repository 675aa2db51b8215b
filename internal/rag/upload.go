// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/transport"
)

// uploadResponse is the backend's reply to a successful upload.
type uploadResponse struct {
	ResourceID string `json:"resource_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Upload sends doc to the ingestion endpoint as a multipart "file" field.
// The document is validated first; an invalid document never reaches the
// network.
func (c *Client) Upload(ctx context.Context, doc *transport.Document) (transport.UploadResult, error) {
	if err := doc.Validate(); err != nil {
		return transport.UploadResult{}, err
	}
	if c.configErr != nil {
		return transport.UploadResult{}, c.configErr
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Name))
	hdr.Set("Content-Type", transport.DocumentMIME)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return transport.UploadResult{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, doc.Reader()); err != nil {
		return transport.UploadResult{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return transport.UploadResult{}, fmt.Errorf("failed to build upload: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/resources/upload", &body)
	if err != nil {
		return transport.UploadResult{}, errs.Transport(opUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	c.logger.Info("uploading document", zap.String("file", doc.Name), zap.Int64("bytes", doc.Size))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transport.UploadResult{}, transport.WrapRequestError(opUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transport.UploadResult{}, transport.ResponseError(opUpload, resp)
	}

	var ur uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, transport.MaxResponseSize)).Decode(&ur); err != nil {
		return transport.UploadResult{}, errs.Transport(opUpload, fmt.Errorf("malformed upload response: %w", err))
	}
	if ur.ResourceID == "" {
		return transport.UploadResult{}, &errs.TransportError{Op: opUpload, Detail: "response carried no resource id"}
	}
	if ur.Filename == "" {
		ur.Filename = doc.Name
	}

	c.logger.Info("document uploaded",
		zap.String("resource_id", ur.ResourceID), zap.Int("pages", ur.PageCount))
	return transport.UploadResult{
		ResourceID: ur.ResourceID,
		Filename:   ur.Filename,
		PageCount:  ur.PageCount,
	}, nil
}
