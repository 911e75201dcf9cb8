package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cognicore/shortliffe/pkg/shortliffe"
	"github.com/cognicore/shortliffe/pkg/shortliffe/inference"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/query"
)

// Handlers contains the HTTP handlers for the expert system API.
type Handlers struct {
	sys    *shortliffe.System
	logger *zap.Logger
}

// NewHandlers creates handlers for the given system.
func NewHandlers(sys *shortliffe.System, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{sys: sys, logger: logger}
}

// FactRequest is the body of POST /api/fact.
type FactRequest struct {
	Fact string   `json:"fact" binding:"required"`
	CF   *float64 `json:"cf" binding:"required"`
}

// EditFactRequest is the body of PUT /api/fact.
type EditFactRequest struct {
	OldFact string   `json:"old_fact" binding:"required"`
	NewFact string   `json:"new_fact" binding:"required"`
	CF      *float64 `json:"cf" binding:"required"`
}

// RuleRequest is the body of POST /api/rule and PUT /api/rule/:index.
// Conditions is free text or a list of names or condition objects.
type RuleRequest struct {
	Conditions any      `json:"conditions" binding:"required"`
	Conclusion string   `json:"conclusion" binding:"required"`
	CF         *float64 `json:"cf" binding:"required"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// InferResponse is the body of POST /api/infer.
type InferResponse struct {
	Success bool `json:"success"`
	inference.Result
}

// QueryResponse is the body of POST /api/query.
type QueryResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Result  *query.Report `json:"result,omitempty"`
}

func (h *Handlers) log(c *gin.Context, handler string) *zap.Logger {
	return h.logger.With(
		zap.String("request_id", getOrCreateRequestID(c)),
		zap.String("handler", handler))
}

// HandleIndex handles GET /.
func (h *Handlers) HandleIndex(c *gin.Context) {
	state := h.sys.State()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Current": h.sys.Current(),
		"Facts":   len(state.Facts),
		"Rules":   len(state.Rules),
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleListKnowledgeBases handles GET /api/knowledge-bases.
func (h *Handlers) HandleListKnowledgeBases(c *gin.Context) {
	files, err := h.sys.ListKnowledgeBases(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

// HandleLoadKnowledgeBase handles GET /api/knowledge-base/:filename.
func (h *Handlers) HandleLoadKnowledgeBase(c *gin.Context) {
	name := c.Param("filename")
	snap, err := h.sys.LoadKnowledgeBase(c.Request.Context(), name)
	if err != nil {
		h.log(c, "HandleLoadKnowledgeBase").Warn("load failed", zap.String("kb", name), zap.Error(err))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"facts":    snap.Facts,
		"rules":    snap.Rules,
		"filename": name,
	})
}

// HandleSaveKnowledgeBase handles POST /api/knowledge-base/:filename.
// A JSON snapshot body is stored as given; an empty body stores the current
// state.
func (h *Handlers) HandleSaveKnowledgeBase(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	var snap *kb.Snapshot
	if len(bytes.TrimSpace(body)) > 0 {
		snap = &kb.Snapshot{}
		if err := json.Unmarshal(body, snap); err != nil {
			h.fail(c, fmt.Errorf("%w: %w", internalerr.ErrInvalidInput, err))
			return
		}
	}

	stored, err := h.sys.SaveKnowledgeBase(c.Request.Context(), c.Param("filename"), snap)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "filename": stored})
}

// HandleDeleteKnowledgeBase handles DELETE /api/knowledge-base/:filename.
func (h *Handlers) HandleDeleteKnowledgeBase(c *gin.Context) {
	if err := h.sys.DeleteKnowledgeBase(c.Request.Context(), c.Param("filename")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleAddFact handles POST /api/fact.
func (h *Handlers) HandleAddFact(c *gin.Context) {
	var req FactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	facts, err := h.sys.AddFact(req.Fact, *req.CF)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "facts": facts})
}

// HandleEditFact handles PUT /api/fact.
func (h *Handlers) HandleEditFact(c *gin.Context) {
	var req EditFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	facts, err := h.sys.EditFact(req.OldFact, req.NewFact, *req.CF)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "facts": facts})
}

// HandleDeleteFact handles DELETE /api/fact/*fact. The fact name may contain
// slashes.
func (h *Handlers) HandleDeleteFact(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("fact"), "/")
	if name == "" {
		badRequest(c, "Missing fact name")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "facts": h.sys.DeleteFact(name)})
}

// HandleAddRule handles POST /api/rule.
func (h *Handlers) HandleAddRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	rules, err := h.sys.AddRule(req.Conditions, req.Conclusion, *req.CF)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rules": rules})
}

// HandleEditRule handles PUT /api/rule/:index.
func (h *Handlers) HandleEditRule(c *gin.Context) {
	index, ok := ruleIndex(c)
	if !ok {
		return
	}
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	rules, err := h.sys.EditRule(index, req.Conditions, req.Conclusion, *req.CF)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rules": rules})
}

// HandleDeleteRule handles DELETE /api/rule/:index.
func (h *Handlers) HandleDeleteRule(c *gin.Context) {
	index, ok := ruleIndex(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rules": h.sys.DeleteRule(index)})
}

func ruleIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "Rule index must be an integer")
		return 0, false
	}
	return index, true
}

// HandleInfer handles POST /api/infer.
func (h *Handlers) HandleInfer(c *gin.Context) {
	res := h.sys.Infer()
	observeInference(res)
	if len(res.Skipped) > 0 {
		h.log(c, "HandleInfer").Warn("rules skipped during inference",
			zap.String("run_id", res.RunID),
			zap.Int("skipped", len(res.Skipped)))
	}
	c.JSON(http.StatusOK, InferResponse{Success: true, Result: res})
}

// HandleQuery handles POST /api/query. Unusable queries, an empty body
// included, are answered with success=false and status 200.
func (h *Handlers) HandleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	rep := h.sys.Query(req.Query)
	observeQuery(rep)
	if !rep.Success {
		c.JSON(http.StatusOK, QueryResponse{Success: false, Error: rep.Error})
		return
	}
	c.JSON(http.StatusOK, QueryResponse{Success: true, Result: &rep})
}

// HandleCurrentState handles GET /api/current-state.
func (h *Handlers) HandleCurrentState(c *gin.Context) {
	state := h.sys.State()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"facts":    state.Facts,
		"rules":    state.Rules,
		"filename": h.sys.Current(),
	})
}

// HandleClear handles POST /api/clear.
func (h *Handlers) HandleClear(c *gin.Context) {
	h.sys.Clear()
	h.log(c, "HandleClear").Info("knowledge base cleared")
	c.JSON(http.StatusOK, gin.H{"success": true, "facts": map[string]float64{}, "rules": []kb.Rule{}})
}
