package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the SchoolGrid MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription(
		"List the SchoolGrid subscription plan catalog. "+
			"Returns each plan's monthly price, resource limits (students, teachers, invoices, "+
			"storage, branches), billing mode, and feature list. "+
			"Use this before recommending a plan change."),
)

var ToolGetSubscription = mcp.NewTool("get_subscription",
	mcp.WithDescription(
		"Get a school's subscription record: current plan, status (trial/active/past_due/cancelled), "+
			"renewal date, capacity packs, and any custom limit override."),
	mcp.WithString("school_id",
		mcp.Description("School ID (e.g. 'sch_abc123'). Defaults to the configured school.")),
)

var ToolGetEntitlements = mcp.NewTool("get_entitlements",
	mcp.WithDescription(
		"Get a school's effective limits after plan, capacity packs, and custom overrides "+
			"are combined. Shows per-resource limits, the billing mode (hard_cap or overage), "+
			"and where the limits came from."),
	mcp.WithString("school_id",
		mcp.Description("School ID (e.g. 'sch_abc123'). Defaults to the configured school.")),
)

var ToolGetUsage = mcp.NewTool("get_usage",
	mcp.WithDescription(
		"Get a school's live usage next to its effective limits: how many students, teachers, "+
			"invoices, storage GB, and branches are in use, and how much headroom remains. "+
			"Use this to answer 'how close are we to our limit' questions."),
	mcp.WithString("school_id",
		mcp.Description("School ID (e.g. 'sch_abc123'). Defaults to the configured school.")),
)

var ToolCheckCapacity = mcp.NewTool("check_capacity",
	mcp.WithDescription(
		"Ask the enforcement engine whether a school could add more of a resource right now. "+
			"Returns the verdict (allow/overage/deny), current usage, the effective limit, and "+
			"the estimated overage charge when the billing mode admits overages. "+
			"This is a dry run: it never consumes capacity."),
	mcp.WithString("resource",
		mcp.Required(),
		mcp.Description("Resource to check"),
		mcp.Enum("students", "teachers", "invoices", "storage_gb", "branches")),
	mcp.WithNumber("qty",
		mcp.Description("How many additional units to check for (default 1)")),
	mcp.WithString("school_id",
		mcp.Description("School ID (e.g. 'sch_abc123'). Defaults to the configured school.")),
)
