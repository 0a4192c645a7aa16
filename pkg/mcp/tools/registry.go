// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package tools

import (
	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/mcp"
)

// All returns one handler per host metric tool
func All(logger logr.Logger) []mcp.ToolHandler {
	return []mcp.ToolHandler{
		NewUptimeTool(logger),
		NewCPUInfoTool(logger),
		NewCPULoadTool(logger),
		NewFreeTool(logger),
		NewMountsTool(logger),
		NewDfTool(logger),
		NewPartitionsTool(logger),
		NewVersionTool(logger),
		NewLoadAvgTool(logger),
	}
}

// RegisterAllTools registers every host metric tool with the MCP server
func RegisterAllTools(server *mcp.Server, logger logr.Logger) {
	logger.V(1).Info("Registering host metric tools")

	tools := All(logger)
	for _, tool := range tools {
		server.RegisterTool(tool)
	}

	logger.Info("Completed tool registration", "count", len(tools))
}
