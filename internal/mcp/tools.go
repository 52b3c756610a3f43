package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Row limits for askdb_run_query and askdb_ask.
const (
	defaultToolRows = 100
	maxToolRows     = 1000
)

// registerTools registers all askdb MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Pipeline tools -----

	srv.AddTool(
		mcp.NewTool("askdb_ask",
			mcp.WithDescription(
				"Answer a natural-language question (Turkish or English) about the ERP "+
					"database. Generates a SELECT statement, checks it with the safety "+
					"validator, runs it and returns the SQL, the rows and a short summary. "+
					"When a step fails the result names the stage and includes the attempted SQL.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question, e.g. \"Kaç tane aktif sipariş var?\""),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of rows to return (default 100, max 1000)"),
			),
		),
		s.handleAsk,
	)

	srv.AddTool(
		mcp.NewTool("askdb_generate_sql",
			mcp.WithDescription(
				"Generate a T-SQL SELECT statement for a question without running it. "+
					"The statement is not validated; pass it to askdb_validate_sql or "+
					"askdb_run_query.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question to translate into SQL"),
			),
		),
		s.handleGenerateSQL,
	)

	srv.AddTool(
		mcp.NewTool("askdb_validate_sql",
			mcp.WithDescription(
				"Check a SQL statement against the safety rules: a single SELECT, no "+
					"data-modifying keywords, no comments, no stacked statements and no "+
					"procedure calls. Returns is_valid and the rejection reason.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("The SQL statement to check"),
			),
		),
		s.handleValidateSQL,
	)

	srv.AddTool(
		mcp.NewTool("askdb_run_query",
			mcp.WithDescription(
				"Validate and run a SELECT statement against the ERP database. Rejected "+
					"statements never reach the database. Returns columns and rows as JSON.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("The SELECT statement to run"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of rows to return (default 100, max 1000)"),
			),
		),
		s.handleRunQuery,
	)

	// ----- Feedback tools -----

	srv.AddTool(
		mcp.NewTool("askdb_correct",
			mcp.WithDescription(
				"Record a correction for a wrongly generated query. The corrected SQL must "+
					"pass validation. It is shown in future prompts for similar questions and "+
					"learned as an example.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The original question"),
			),
			mcp.WithString("wrong_sql",
				mcp.Required(),
				mcp.Description("The SQL that was generated"),
			),
			mcp.WithString("correct_sql",
				mcp.Required(),
				mcp.Description("The SQL that should have been generated"),
			),
			mcp.WithString("explanation",
				mcp.Description("Why the original SQL was wrong"),
			),
		),
		s.handleCorrect,
	)

	srv.AddTool(
		mcp.NewTool("askdb_feedback",
			mcp.WithDescription(
				"Record whether a generated query was correct. Correct queries are "+
					"learned as examples for future prompts.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The original question"),
			),
			mcp.WithString("sql",
				mcp.Description("The generated SQL"),
			),
			mcp.WithBoolean("is_correct",
				mcp.Required(),
				mcp.Description("Whether the SQL answered the question correctly"),
			),
			mcp.WithString("comment",
				mcp.Description("Optional free-text comment"),
			),
		),
		s.handleFeedback,
	)

	srv.AddTool(
		mcp.NewTool("askdb_stats",
			mcp.WithDescription(
				"Return feedback statistics (total, correct, incorrect, accuracy %) and "+
					"the number of stored corrections.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleStats,
	)
}

// --------------------------------------------------------------------------
// Pipeline tool handlers
// --------------------------------------------------------------------------

func (s *MCPServer) handleAsk(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "question")
	if err != nil {
		return toolError("%v", err)
	}
	limit := clamp(optionalInt(request, "limit", defaultToolRows), 1, maxToolRows)

	ans := s.assistant.Ask(ctx, question)
	if !ans.Success() {
		if ans.SQL != "" {
			return toolError("%s failed: %s\n\nSQL: %s", ans.Stage, ans.Message, ans.SQL)
		}
		return toolError("%s failed: %s", ans.Stage, ans.Message)
	}

	result := map[string]interface{}{
		"message": ans.Message,
	}
	if ans.SQL != "" {
		result["sql"] = ans.SQL
	}
	if ans.Result != nil {
		rows, truncated := truncateRows(ans.Result.Rows, limit)
		result["columns"] = ans.Result.Columns
		result["rows"] = rows
		result["count"] = len(ans.Result.Rows)
		result["truncated"] = truncated
	}
	return successJSON(result)
}

func (s *MCPServer) handleGenerateSQL(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "question")
	if err != nil {
		return toolError("%v", err)
	}

	sql, err := s.assistant.GenerateSQL(ctx, question)
	if err != nil {
		return toolError("SQL generation failed: %v", err)
	}
	return successJSON(map[string]interface{}{"sql": sql})
}

func (s *MCPServer) handleValidateSQL(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	sql, err := requireString(request, "sql")
	if err != nil {
		return toolError("%v", err)
	}
	return successJSON(s.assistant.ValidateSQL(sql))
}

func (s *MCPServer) handleRunQuery(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	sql, err := requireString(request, "sql")
	if err != nil {
		return toolError("%v", err)
	}
	limit := clamp(optionalInt(request, "limit", defaultToolRows), 1, maxToolRows)

	res, err := s.assistant.RunQuery(ctx, sql)
	if err != nil {
		return toolError("%v\n\nSQL: %s", err, sql)
	}

	rows, truncated := truncateRows(res.Rows, limit)
	result := map[string]interface{}{
		"columns":   res.Columns,
		"rows":      rows,
		"count":     len(rows),
		"truncated": truncated,
	}
	if truncated {
		result["message"] = fmt.Sprintf(
			"Results truncated at %d rows. Increase the 'limit' parameter or add a WHERE clause to narrow results.",
			limit,
		)
	}
	return successJSON(result)
}

// --------------------------------------------------------------------------
// Feedback tool handlers
// --------------------------------------------------------------------------

func (s *MCPServer) handleCorrect(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "question")
	if err != nil {
		return toolError("%v", err)
	}
	wrongSQL, err := requireString(request, "wrong_sql")
	if err != nil {
		return toolError("%v", err)
	}
	correctSQL, err := requireString(request, "correct_sql")
	if err != nil {
		return toolError("%v", err)
	}

	c, err := s.assistant.LearnFromCorrection(ctx, question, wrongSQL, correctSQL, optionalString(request, "explanation"))
	if err != nil {
		return toolError("Correction not saved: %v", err)
	}
	s.logger.Info("correction recorded via MCP", "id", c.ID)
	return successJSON(c)
}

func (s *MCPServer) handleFeedback(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	question, err := requireString(request, "question")
	if err != nil {
		return toolError("%v", err)
	}
	isCorrect, err := request.RequireBool("is_correct")
	if err != nil {
		return toolError("missing required parameter %q", "is_correct")
	}

	f, err := s.assistant.SaveFeedback(ctx, question, optionalString(request, "sql"), isCorrect, optionalString(request, "comment"))
	if err != nil {
		return toolError("Feedback not saved: %v", err)
	}
	return successJSON(f)
}

func (s *MCPServer) handleStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	stats, err := s.assistant.Stats(ctx)
	if err != nil {
		return toolError("Failed to load stats: %v", err)
	}
	return successJSON(stats)
}

func truncateRows(rows []map[string]interface{}, limit int) ([]map[string]interface{}, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
