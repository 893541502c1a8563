package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *SchoolgridClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *SchoolgridClient) *Handlers {
	return &Handlers{client: client}
}

// schoolID resolves the school to act on: an explicit argument wins,
// otherwise the configured default.
func (h *Handlers) schoolID(req mcp.CallToolRequest) string {
	if id := req.GetString("school_id", ""); id != "" {
		return id
	}
	return h.client.cfg.SchoolID
}

// HandleListPlans returns the plan catalog.
func (h *Handlers) HandleListPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListPlans(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list plans: %v", err)), nil
	}

	text, err := formatPlanList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse plans: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetSubscription returns the school's subscription record.
func (h *Handlers) HandleGetSubscription(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schoolID := h.schoolID(req)
	if schoolID == "" {
		return mcp.NewToolResultError("school_id is required (no default school configured)"), nil
	}

	raw, err := h.client.GetSubscription(ctx, schoolID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get subscription: %v", err)), nil
	}

	text, err := formatSubscription(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse subscription: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetEntitlements returns the school's effective limits.
func (h *Handlers) HandleGetEntitlements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schoolID := h.schoolID(req)
	if schoolID == "" {
		return mcp.NewToolResultError("school_id is required (no default school configured)"), nil
	}

	raw, err := h.client.GetEntitlements(ctx, schoolID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get entitlements: %v", err)), nil
	}

	text, err := formatEntitlements(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse entitlements: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetUsage returns live usage counts next to effective limits.
func (h *Handlers) HandleGetUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schoolID := h.schoolID(req)
	if schoolID == "" {
		return mcp.NewToolResultError("school_id is required (no default school configured)"), nil
	}

	raw, err := h.client.GetUsage(ctx, schoolID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get usage: %v", err)), nil
	}

	text, err := formatUsage(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse usage: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleCheckCapacity asks the enforcement engine for a dry-run decision.
func (h *Handlers) HandleCheckCapacity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource := req.GetString("resource", "")
	if resource == "" {
		return mcp.NewToolResultError("resource is required"), nil
	}
	qty := req.GetInt("qty", 1)
	if qty < 1 {
		qty = 1
	}
	schoolID := h.schoolID(req)
	if schoolID == "" {
		return mcp.NewToolResultError("school_id is required (no default school configured)"), nil
	}

	raw, err := h.client.CheckCapacity(ctx, schoolID, resource, uint64(qty))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Capacity check failed: %v", err)), nil
	}

	text, err := formatDecision(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decision: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

// resourceOrder fixes the display order of resources in formatted output.
var resourceOrder = []string{"students", "teachers", "invoices", "storage_gb", "branches"}

// limitKeys maps a wire resource name to its key in a limits object.
var limitKeys = map[string]string{
	"students":   "students",
	"teachers":   "teachers",
	"invoices":   "invoices",
	"storage_gb": "storageGB",
	"branches":   "branches",
}

func formatPlanList(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Plans []map[string]any `json:"plans"`
	}
	// Try as {"plans": [...]}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Plans == nil {
		// Try as direct array
		if err := json.Unmarshal(raw, &wrapper.Plans); err != nil {
			return "", fmt.Errorf("unexpected plans response format")
		}
	}

	if len(wrapper.Plans) == 0 {
		return "No plans available.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d plan(s):\n\n", len(wrapper.Plans)))
	for i, p := range wrapper.Plans {
		name := getString(p, "name")
		if rec, ok := p["recommended"].(bool); ok && rec {
			name += " (recommended)"
		}
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, name, getString(p, "id")))
		sb.WriteString(fmt.Sprintf("   Price: %s/month\n", getString(p, "monthlyPrice")))
		if lim, ok := p["limits"].(map[string]any); ok {
			sb.WriteString("   Limits: " + formatLimitLine(lim) + "\n")
			if mode := getString(lim, "mode"); mode != "" {
				sb.WriteString(fmt.Sprintf("   Billing mode: %s\n", mode))
			}
		}
		if feats, ok := p["features"].([]any); ok && len(feats) > 0 {
			names := make([]string, 0, len(feats))
			for _, f := range feats {
				if s, ok := f.(string); ok {
					names = append(names, s)
				}
			}
			sb.WriteString("   Features: " + strings.Join(names, ", ") + "\n")
		}
		if i < len(wrapper.Plans)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// formatLimitLine renders a limits object as a single line in fixed
// resource order. Finite limits arrive as numbers, unlimited as a string.
func formatLimitLine(lim map[string]any) string {
	parts := make([]string, 0, len(resourceOrder))
	for _, r := range resourceOrder {
		key := limitKeys[r]
		v, ok := lim[key]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", r, limitValue(v)))
	}
	return strings.Join(parts, ", ")
}

func limitValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatSubscription(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	// Subscription might be at top level or nested under "subscription"
	sub := resp
	if s, ok := resp["subscription"].(map[string]any); ok {
		sub = s
	}

	var sb strings.Builder
	sb.WriteString("Subscription:\n")
	sb.WriteString(fmt.Sprintf("  School: %s\n", getString(sub, "schoolId")))
	if v := getString(sub, "planId"); v != "" {
		sb.WriteString(fmt.Sprintf("  Plan: %s\n", v))
	} else {
		sb.WriteString("  Plan: none (custom limits)\n")
	}
	sb.WriteString(fmt.Sprintf("  Status: %s\n", getString(sub, "status")))
	if v := getString(sub, "renewalDate"); v != "" {
		sb.WriteString(fmt.Sprintf("  Renews: %s\n", v))
	}
	if v, ok := getFloat(sub, "trialDaysLeft"); ok {
		sb.WriteString(fmt.Sprintf("  Trial days left: %.0f\n", v))
	}
	if cl, ok := sub["customLimits"].(map[string]any); ok {
		sb.WriteString("  Custom limits: " + formatLimitLine(cl) + "\n")
	}
	if packs, ok := sub["packs"].([]any); ok && len(packs) > 0 {
		sb.WriteString(fmt.Sprintf("  Capacity packs (%d):\n", len(packs)))
		for _, p := range packs {
			m, ok := p.(map[string]any)
			if !ok {
				continue
			}
			qty, _ := getFloat(m, "qty")
			sb.WriteString(fmt.Sprintf("    +%.0f %s (%s)\n", qty, getString(m, "type"), getString(m, "price")))
		}
	}

	return sb.String(), nil
}

func formatEntitlements(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	eff := resp
	if e, ok := resp["entitlements"].(map[string]any); ok {
		eff = e
	}

	var sb strings.Builder
	sb.WriteString("Effective entitlements:\n")
	sb.WriteString(fmt.Sprintf("  School: %s\n", getString(eff, "schoolId")))
	sb.WriteString(fmt.Sprintf("  Source: %s\n", getString(eff, "source")))
	sb.WriteString(fmt.Sprintf("  Billing mode: %s\n", getString(eff, "mode")))
	if lim, ok := eff["limits"].(map[string]any); ok {
		sb.WriteString("  Limits:\n")
		for _, r := range resourceOrder {
			if v, ok := lim[r]; ok {
				sb.WriteString(fmt.Sprintf("    %s: %s\n", r, limitValue(v)))
			}
		}
	}

	return sb.String(), nil
}

func formatUsage(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	rows, ok := resp["usage"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected usage response format")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage for %s (mode: %s):\n", getString(resp, "schoolId"), getString(resp, "mode")))
	for _, r := range resourceOrder {
		row, ok := rows[r].(map[string]any)
		if !ok {
			continue
		}
		used, _ := getFloat(row, "used")
		line := fmt.Sprintf("  %s: %.0f used, limit %s", r, used, limitValue(row["limit"]))
		if rem, ok := getFloat(row, "remaining"); ok {
			line += fmt.Sprintf(" (%.0f remaining)", rem)
		}
		sb.WriteString(line + "\n")
	}

	return sb.String(), nil
}

func formatDecision(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	d := resp
	if dd, ok := resp["decision"].(map[string]any); ok {
		d = dd
	}

	verdict := getString(d, "verdict")
	requested, _ := getFloat(d, "requested")
	current, _ := getFloat(d, "current")

	var sb strings.Builder
	switch verdict {
	case "allow":
		sb.WriteString("ALLOWED")
	case "overage":
		sb.WriteString("ALLOWED WITH OVERAGE CHARGES")
	case "deny":
		sb.WriteString("DENIED")
	default:
		return "", fmt.Errorf("no verdict in response: %s", string(raw))
	}
	sb.WriteString(fmt.Sprintf("\n  Resource: %s\n", getString(d, "resource")))
	sb.WriteString(fmt.Sprintf("  Requested: +%.0f (currently %.0f, limit %s)\n", requested, current, limitValue(d["limit"])))
	if extra, ok := getFloat(d, "extraUnits"); ok && extra > 0 {
		sb.WriteString(fmt.Sprintf("  Overage: %.0f unit(s), estimated charge %s\n", extra, getString(d, "estimatedCharge")))
	}
	if reason := getString(d, "reason"); reason != "" {
		sb.WriteString(fmt.Sprintf("  Reason: %s\n", reason))
	}

	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
