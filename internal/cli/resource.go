// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Execute prints metadata for an uploaded document.
func (c *ResourceInfoCmd) Execute(args []string) error {
	if len(args) > 0 {
		return usageErrorf("resource info", "unexpected argument %q", args[0])
	}
	if err := c.app.initLogger(false); err != nil {
		return err
	}
	client, err := c.app.RAGClient()
	if err != nil {
		return err
	}
	c.app.plainOutput()

	info, err := client.ResourceInfo(context.Background(), c.Args.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(c.app.out, info)
	}

	out := c.app.out
	fmt.Fprintln(out, TitleStyle.Render(info.Filename))
	fmt.Fprintln(out, RenderSeparator(40))
	fmt.Fprintln(out, RenderLabel("Resource", info.ResourceID))
	fmt.Fprintln(out, RenderLabel("Pages", strconv.Itoa(info.PageCount)))
	if info.ChunkCount > 0 {
		fmt.Fprintln(out, RenderLabel("Chunks", strconv.Itoa(info.ChunkCount)))
	}
	if info.Status != "" {
		fmt.Fprintln(out, RenderLabel("Status", info.Status))
	}
	if info.UploadDate != "" {
		fmt.Fprintln(out, RenderLabel("Uploaded", info.UploadDate))
	}
	return nil
}

// Execute deletes an uploaded document.
func (c *ResourceDeleteCmd) Execute(args []string) error {
	if len(args) > 0 {
		return usageErrorf("resource delete", "unexpected argument %q", args[0])
	}
	if err := c.app.initLogger(false); err != nil {
		return err
	}
	client, err := c.app.RAGClient()
	if err != nil {
		return err
	}
	c.app.plainOutput()

	if err := client.DeleteResource(context.Background(), c.Args.ID); err != nil {
		return err
	}
	c.app.logger().Info("resource deleted", zap.String("resource_id", c.Args.ID))
	fmt.Fprintln(c.app.out, SuccessStyle.Render("Deleted ")+c.Args.ID)
	return nil
}
