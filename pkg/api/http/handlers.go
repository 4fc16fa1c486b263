package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/orchestrator"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/units"
)

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PipelineRunRequest names the owner a pipeline run works for.
type PipelineRunRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

// QueueRequest enqueues one unit task for deferred execution.
type QueueRequest struct {
	Unit     string                 `json:"unit" binding:"required"`
	Task     map[string]interface{} `json:"task" binding:"required"`
	Priority int                    `json:"priority"`
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// bindTask decodes the request body into a task. An empty body is an empty
// task, not an error.
func bindTask(c *gin.Context) (agent.Task, bool) {
	task := agent.Task{}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return task, true
	}
	if err := c.ShouldBindJSON(&task); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, false
	}
	return task, true
}

// intQuery parses an optional integer query parameter, writing the error
// response itself when the value does not parse.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", name+" must be an integer")
		return 0, false
	}
	return n, true
}

// domainStatus maps a unit's refusal message onto an HTTP status.
func domainStatus(msg string) (int, string) {
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound, "NOT_FOUND"
	case strings.Contains(msg, "already"):
		return http.StatusConflict, "CONFLICT"
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"),
		strings.Contains(msg, "nothing to update"), strings.Contains(msg, "must be"):
		return http.StatusBadRequest, "INVALID_REQUEST"
	default:
		return http.StatusUnprocessableEntity, "OPERATION_FAILED"
	}
}

// invoke runs one unit op and writes the response. Domain refusals map onto
// client-error statuses; infrastructure errors are 500s.
func (s *Server) invoke(c *gin.Context, unitID string, task agent.Task, okStatus int) {
	result, err := s.orch.Invoke(c.Request.Context(), unitID, task)
	if err != nil {
		s.logger.Error("invocation failed",
			zap.String("unit", unitID),
			zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "unit invocation failed")
		return
	}
	if result.Failed() {
		status, code := domainStatus(result.ErrorMessage())
		errorJSON(c, status, code, result.ErrorMessage())
		return
	}
	c.JSON(okStatus, result.Data)
}

// runChain runs a successor chain from start and reports every step. A
// refusal on the first step becomes an error response, a refusal further
// down is reported in place, since the earlier steps already ran.
func (s *Server) runChain(c *gin.Context, start string, task agent.Task, okStatus int) {
	results := s.orch.RunChain(c.Request.Context(), start, task, 0)
	if len(results) == 0 {
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "chain produced no results")
		return
	}
	if results[0].Failed() {
		status, code := domainStatus(results[0].ErrorMessage())
		errorJSON(c, status, code, results[0].ErrorMessage())
		return
	}
	c.JSON(okStatus, gin.H{"steps": stepList(results)})
}

// stepList flattens chain results for a JSON response.
func stepList(results []*agent.Result) []gin.H {
	steps := make([]gin.H, 0, len(results))
	for _, r := range results {
		step := gin.H{
			"unit": r.Unit,
			"op":   r.Op,
			"ok":   !r.Failed(),
			"data": r.Data,
		}
		if r.Failed() {
			step["error"] = r.ErrorMessage()
		}
		steps = append(steps, step)
	}
	return steps
}

// handleHealth reports liveness plus a durable-store ping.
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"orchestrator": "ok", "records": "ok"}
	overall := "healthy"
	status := http.StatusOK

	if err := s.records.Ping(c.Request.Context()); err != nil {
		checks["records"] = err.Error()
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}

// --- Profiles ---

// handleCreateProfile creates a profile. When the body carries resume text
// the chain continues into the parser, so the response reports both steps.
func (s *Server) handleCreateProfile(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "create_profile"
	s.runChain(c, units.ProfileID, task, http.StatusCreated)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	s.invoke(c, units.ProfileID, agent.Task{
		"op":       "get_profile",
		"owner_id": c.Param("id"),
	}, http.StatusOK)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "update_profile"
	task["owner_id"] = c.Param("id")
	s.invoke(c, units.ProfileID, task, http.StatusOK)
}

// handleUpdatePreferences takes the preferences object itself as the body.
func (s *Server) handleUpdatePreferences(c *gin.Context) {
	body, ok := bindTask(c)
	if !ok {
		return
	}
	s.invoke(c, units.ProfileID, agent.Task{
		"op":          "update_preferences",
		"owner_id":    c.Param("id"),
		"preferences": map[string]interface{}(body),
	}, http.StatusOK)
}

func (s *Server) handleUpdateFilters(c *gin.Context) {
	body, ok := bindTask(c)
	if !ok {
		return
	}
	s.invoke(c, units.ProfileID, agent.Task{
		"op":       "update_filters",
		"owner_id": c.Param("id"),
		"filters":  map[string]interface{}(body),
	}, http.StatusOK)
}

// handleSetResume stores resume text and parses it in one chain.
func (s *Server) handleSetResume(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "set_resume"
	task["owner_id"] = c.Param("id")
	s.runChain(c, units.ProfileID, task, http.StatusOK)
}

// handleRecommendations scores the owner against the current posting pool.
// Qualified postings are persisted as matched, so repeated calls drain the
// new pool rather than repeating themselves.
func (s *Server) handleRecommendations(c *gin.Context) {
	s.invoke(c, units.MatcherID, agent.Task{
		"op":       "match_postings",
		"owner_id": c.Param("id"),
	}, http.StatusOK)
}

func (s *Server) handleListApplications(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	task := agent.Task{
		"op":       "get_applications",
		"owner_id": c.Param("id"),
	}
	if status := c.Query("status"); status != "" {
		task["status"] = status
	}
	if limit > 0 {
		task["limit"] = limit
	}
	s.invoke(c, units.TrackerID, task, http.StatusOK)
}

func (s *Server) handleDigest(c *gin.Context) {
	ops := map[string]string{
		"daily":    "generate_digest",
		"weekly":   "weekly_summary",
		"pipeline": "pipeline_report",
	}
	op, ok := ops[c.Param("kind")]
	if !ok {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", "unknown digest kind: "+c.Param("kind"))
		return
	}
	s.invoke(c, units.DigestID, agent.Task{
		"op":       op,
		"owner_id": c.Param("id"),
	}, http.StatusOK)
}

// handleProfileStats reports application counts straight from the store.
func (s *Server) handleProfileStats(c *gin.Context) {
	ownerID := c.Param("id")
	stats, err := s.records.ApplicationStats(c.Request.Context(), ownerID)
	if err != nil {
		s.logger.Error("failed to load stats", zap.String("owner_id", ownerID), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "failed to load stats")
		return
	}

	byStatus := make(map[string]int, len(stats))
	total := 0
	for status, n := range stats {
		byStatus[string(status)] = n
		total += n
	}
	c.JSON(http.StatusOK, gin.H{
		"owner_id":  ownerID,
		"total":     total,
		"by_status": byStatus,
	})
}

// --- Postings ---

// handleScrape starts a scrape. A url scrapes one board page, a company
// guesses its careers page, neither runs every registered source. With
// auto_match set the chain continues into matching.
func (s *Server) handleScrape(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	switch {
	case task.String("url") != "":
		task["op"] = "scrape_url"
	case task.String("company") != "":
		task["op"] = "scrape_company"
	default:
		task["op"] = "scrape_new_postings"
	}
	s.runChain(c, units.ScraperID, task, http.StatusOK)
}

func (s *Server) handleSearchPostings(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	postings, err := s.records.SearchPostings(c.Request.Context(), records.PostingFilter{
		Company:  c.Query("company"),
		Location: c.Query("location"),
		Status:   records.PostingStatus(c.Query("status")),
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error("failed to search postings", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "failed to search postings")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"postings": postings,
		"total":    len(postings),
	})
}

func (s *Server) handleGetPosting(c *gin.Context) {
	posting, err := s.records.GetPosting(c.Request.Context(), c.Param("id"))
	if errors.Is(err, records.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", "posting not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load posting", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "failed to load posting")
		return
	}
	c.JSON(http.StatusOK, posting)
}

func (s *Server) handleMatch(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "match_postings"
	s.invoke(c, units.MatcherID, task, http.StatusOK)
}

// --- Applications ---

func (s *Server) handleCreateApplication(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "create_application"
	s.invoke(c, units.TrackerID, task, http.StatusCreated)
}

// handlePrepareApplication assembles the submission package and chains into
// application tracking.
func (s *Server) handlePrepareApplication(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "prepare_application"
	s.runChain(c, units.FormFillerID, task, http.StatusOK)
}

func (s *Server) handleGetApplication(c *gin.Context) {
	s.invoke(c, units.TrackerID, agent.Task{
		"op":             "get_status",
		"application_id": c.Param("id"),
	}, http.StatusOK)
}

func (s *Server) handleTimeline(c *gin.Context) {
	s.invoke(c, units.TrackerID, agent.Task{
		"op":             "get_timeline",
		"application_id": c.Param("id"),
	}, http.StatusOK)
}

func (s *Server) handleUpdateApplicationStatus(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "update_status"
	task["application_id"] = c.Param("id")
	s.invoke(c, units.TrackerID, task, http.StatusOK)
}

func (s *Server) handleAddNote(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	task["op"] = "add_note"
	task["application_id"] = c.Param("id")
	s.invoke(c, units.TrackerID, task, http.StatusCreated)
}

// --- Screening questions ---

// handleAnswer answers one question or a batch, depending on which field
// the body carries.
func (s *Server) handleAnswer(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	if len(task.Strings("questions")) > 0 {
		task["op"] = "answer_batch"
	} else {
		task["op"] = "answer_question"
	}
	s.invoke(c, units.QAID, task, http.StatusOK)
}

// --- Orchestration ---

func (s *Server) handleListPipelines(c *gin.Context) {
	pipelines := gin.H{}
	for _, name := range s.orch.Pipelines() {
		steps, _ := s.orch.PipelineSteps(name)
		list := make([]gin.H, 0, len(steps))
		for _, step := range steps {
			list = append(list, gin.H{"unit": step.Unit, "op": step.Op})
		}
		pipelines[name] = list
	}
	c.JSON(http.StatusOK, gin.H{"pipelines": pipelines})
}

func (s *Server) handleRunPipeline(c *gin.Context) {
	var req PipelineRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	name := c.Param("name")
	results, err := s.orch.RunPipeline(c.Request.Context(), req.OwnerID, name)
	if errors.Is(err, orchestrator.ErrUnknownPipeline) {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("pipeline run failed",
			zap.String("pipeline", name),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "PIPELINE_FAILED",
				Message: err.Error(),
				Details: gin.H{"completed_steps": len(results)},
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pipeline": name,
		"owner_id": req.OwnerID,
		"steps":    stepList(results),
	})
}

func (s *Server) handleEnqueue(c *gin.Context) {
	var req QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if agent.Task(req.Task).Op() == "" {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "task.op is required")
		return
	}
	if !s.registry.Has(req.Unit) {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", "unknown unit: "+req.Unit)
		return
	}

	if err := s.orch.Enqueue(c.Request.Context(), req.Unit, agent.Task(req.Task), req.Priority); err != nil {
		s.logger.Error("failed to enqueue", zap.String("unit", req.Unit), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "failed to enqueue task")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"unit":   req.Unit,
	})
}

func (s *Server) handleDrainQueue(c *gin.Context) {
	task, ok := bindTask(c)
	if !ok {
		return
	}
	results, err := s.orch.DrainQueue(c.Request.Context(), task.Int("max"))
	if err != nil {
		s.logger.Error("drain failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "failed to drain queue")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drained": len(results),
		"results": stepList(results),
	})
}

func (s *Server) handleSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.SystemStatus())
}

func (s *Server) handleListUnits(c *gin.Context) {
	described, err := s.registry.Describe()
	if err != nil {
		s.logger.Error("failed to describe units", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "failed to describe units")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"units": described,
		"total": len(described),
	})
}
