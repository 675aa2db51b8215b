// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/transport"
)

// ResourceInfo is the metadata the backend keeps for an uploaded document.
type ResourceInfo struct {
	ResourceID string `json:"resource_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	UploadDate string `json:"upload_date"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
}

// ResourceInfo fetches metadata for id. Results are cached.
func (c *Client) ResourceInfo(ctx context.Context, id string) (ResourceInfo, error) {
	if c.configErr != nil {
		return ResourceInfo{}, c.configErr
	}
	if strings.TrimSpace(id) == "" {
		return ResourceInfo{}, errs.Validation("resource_id", "is required")
	}
	if cached, ok := c.infoCache.Get(id); ok {
		return cached.(ResourceInfo), nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(id), nil)
	if err != nil {
		return ResourceInfo{}, errs.Transport(opInfo, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ResourceInfo{}, transport.WrapRequestError(opInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ResourceInfo{}, transport.ResponseError(opInfo, resp)
	}

	var info ResourceInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, transport.MaxResponseSize)).Decode(&info); err != nil {
		return ResourceInfo{}, errs.Transport(opInfo, fmt.Errorf("malformed response: %w", err))
	}
	c.infoCache.Set(id, info, cache.DefaultExpiration)
	return info, nil
}

// DeleteResource removes the document and its index from the backend.
func (c *Client) DeleteResource(ctx context.Context, id string) error {
	if c.configErr != nil {
		return c.configErr
	}
	if strings.TrimSpace(id) == "" {
		return errs.Validation("resource_id", "is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.resourceURL(id), nil)
	if err != nil {
		return errs.Transport(opDelete, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transport.WrapRequestError(opDelete, err)
	}
	defer resp.Body.Close()

	c.infoCache.Delete(id)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transport.ResponseError(opDelete, resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	c.logger.Info("resource deleted", zap.String("resource_id", id))
	return nil
}
