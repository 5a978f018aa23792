// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the pipeline MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"CTran Flagging Pipeline Server",
		"1.0.0",
		server.WithLogging(),
	)
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		logger:  logger,
	}
	if store := mgr.GetHiveStore(); store != nil {
		h.catalog = core.NewFlagCatalog(store)
	}

	// --- 1. Tool: list_flags ---
	s.AddTool(mcp.NewTool("list_flags",
		mcp.WithDescription("List every flag the pipeline can attach to a stop event."),
	), h.handleListFlags)

	// --- 2. Tool: lookup_flag ---
	s.AddTool(mcp.NewTool("lookup_flag",
		mcp.WithDescription("Look up the id and description of a flag by name (case-insensitive)."),
		mcp.WithString("name", mcp.Description("Flag name, e.g. DUPLICATE or abnormal_dwell."), mcp.Required()),
	), h.handleLookupFlag)

	// --- 3. Tool: hive_status ---
	s.AddTool(mcp.NewTool("hive_status",
		mcp.WithDescription("Report the hive backend, table row counts and the latest processed service day."),
	), h.handleHiveStatus)

	// --- 4. Tool: latest_checkpoint ---
	s.AddTool(mcp.NewTool("latest_checkpoint",
		mcp.WithDescription("Return the latest processed service day and the day a next-day run would process."),
	), h.handleLatestCheckpoint)

	// --- 5. Tool: process_range ---
	s.AddTool(mcp.NewTool("process_range",
		mcp.WithDescription("Flag every stop event with a service date in the range and deliver the rows to the configured sinks."),
		mcp.WithString("start", mcp.Description("Start date as YYYY/MM/DD."), mcp.Required()),
		mcp.WithString("end", mcp.Description("End date as YYYY/MM/DD. Defaults to the start date.")),
	), h.handleProcessRange)

	return s
}

// StartMCPServer starts the pipeline MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager, logger *slog.Logger) error {
	s := NewMCPServer(baseCfg, mgr, logger)
	return server.ServeStdio(s)
}
