// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/mcp"
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

const (
	formatJSON = "json"
	formatText = "text"
)

var errNoSession = errors.New("no session bound to request")

// BaseTool carries the parts every host metric tool shares: identity, the
// "format" argument and access to the caller's query session.
type BaseTool struct {
	name        string
	description string
	metric      string
	logger      logr.Logger
	properties  map[string]mcp.PropertySchema
}

// NewBaseTool creates a tool reporting metric. extra adds tool specific arguments
// next to "format".
func NewBaseTool(name, description, metric string, logger logr.Logger, extra map[string]mcp.PropertySchema) BaseTool {
	properties := map[string]mcp.PropertySchema{
		"format": {
			Type:        "string",
			Description: "Output format (json, text)",
			Default:     formatJSON,
			Enum:        []string{formatJSON, formatText},
		},
	}
	for k, v := range extra {
		properties[k] = v
	}

	return BaseTool{
		name:        name,
		description: description,
		metric:      metric,
		logger:      logger.WithName(name),
		properties:  properties,
	}
}

func (b *BaseTool) Name() string {
	return b.name
}

func (b *BaseTool) Description() string {
	return b.description
}

func (b *BaseTool) InputSchema() mcp.ToolSchema {
	return mcp.ToolSchema{
		Type:       "object",
		Properties: b.properties,
	}
}

// session returns the query session of the calling MCP session
func (b *BaseTool) session(ctx context.Context) (*sysinfo.Session, error) {
	s, ok := mcp.SessionFromContext(ctx)
	if !ok {
		return nil, errNoSession
	}
	return s, nil
}

// respond renders data as JSON, or through text when the caller asked for text
func (b *BaseTool) respond(args map[string]any, data any, text func() string) (*mcp.CallToolResponse, error) {
	format, err := formatArg(args)
	if err != nil {
		return nil, err
	}

	if format == formatText {
		return mcp.TextResponse(text()), nil
	}

	jsonData, err := json.MarshalIndent(map[string]any{
		"type":      b.metric,
		"timestamp": getCurrentTimestamp(),
		"data":      data,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", b.metric, err)
	}
	return mcp.TextResponse(string(jsonData)), nil
}

func formatArg(args map[string]any) (string, error) {
	format, err := stringArg(args, "format", formatJSON)
	if err != nil {
		return "", err
	}
	switch format {
	case formatJSON, formatText:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}
