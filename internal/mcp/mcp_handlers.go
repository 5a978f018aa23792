package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/core/flaggers"
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/outwriter"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
	catalog *core.FlagCatalog
	logger  *slog.Logger
}

// checkpointResult is the payload of latest_checkpoint.
type checkpointResult struct {
	HasCheckpoint bool   `json:"has_checkpoint"`
	LatestDay     string `json:"latest_service_day,omitempty"`
	NextDay       string `json:"next_day,omitempty"`
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) hive() (contract.HiveStore, *mcp.CallToolResult) {
	store := h.mgr.GetHiveStore()
	if store == nil {
		return nil, mcp.NewToolResultError("hive store is not initialized")
	}
	return store, nil
}

func (h *toolHandler) handleListFlags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.catalog == nil {
		return jsonResult(schema.AllFlags()), nil
	}
	flags, err := h.catalog.All(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list flags: %v", err)), nil
	}
	return jsonResult(flags), nil
}

func (h *toolHandler) handleLookupFlag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	if h.catalog == nil {
		return mcp.NewToolResultError("hive store is not initialized"), nil
	}
	flag, err := h.catalog.Lookup(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(flag), nil
}

func (h *toolHandler) handleHiveStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, errResult := h.hive()
	if errResult != nil {
		return errResult, nil
	}
	status, err := store.GetStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get hive status: %v", err)), nil
	}
	return jsonResult(status), nil
}

func (h *toolHandler) handleLatestCheckpoint(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, errResult := h.hive()
	if errResult != nil {
		return errResult, nil
	}
	day, ok, err := store.LatestProcessedDay(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read checkpoint: %v", err)), nil
	}
	result := checkpointResult{HasCheckpoint: ok}
	if ok {
		result.LatestDay = schema.FormatFlagDate(day)
		result.NextDay = schema.FormatFlagDate(day.AddDate(0, 0, 1))
	}
	return jsonResult(result), nil
}

func (h *toolHandler) handleProcessRange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startStr := request.GetString("start", "")
	if startStr == "" {
		return mcp.NewToolResultError("start date required"), nil
	}
	start, err := schema.ParseInputDate(startStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end := start
	if endStr := request.GetString("end", ""); endStr != "" {
		if end, err = schema.ParseInputDate(endStr); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	store, errResult := h.hive()
	if errResult != nil {
		return errResult, nil
	}
	source := h.mgr.GetSourceStore()
	if source == nil {
		return mcp.NewToolResultError("source store is not initialized"), nil
	}

	cfg := h.baseCfg.Clone()
	registry, err := flaggers.DefaultRegistry(true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sinks := outwriter.BuildSinks(cfg, store, h.logger)
	defer func() { _ = outwriter.CloseSinks(sinks) }()
	orchestrator := core.NewOrchestrator(source, store, registry, sinks, core.OptionsFromConfig(cfg), h.logger)

	report, err := orchestrator.ProcessData(ctx, start, end)
	if err != nil {
		if report != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run %s failed in state %s: %v", report.RunID, report.State, err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	return jsonResult(report), nil
}
