package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storygraph/kgraph-backend/internal/kg/ingest"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
	"github.com/storygraph/kgraph-backend/internal/kg/triples"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
	"github.com/storygraph/kgraph-backend/internal/services"
)

type GraphHandler struct {
	log *logger.Logger
	svc *services.GraphService
}

func NewGraphHandler(log *logger.Logger, svc *services.GraphService) *GraphHandler {
	return &GraphHandler{log: log.With("handler", "GraphHandler"), svc: svc}
}

type ingestRequest struct {
	Script string `json:"script" binding:"required"`
}

type triplesRequest struct {
	Triples []triples.Triple `json:"triples" binding:"required"`
}

type statementView struct {
	Index    int      `json:"index"`
	Kind     string   `json:"kind,omitempty"`
	Executed []string `json:"executed,omitempty"`
	Error    string   `json:"error,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

type reportView struct {
	BatchID    string          `json:"batch_id"`
	Namespace  string          `json:"namespace"`
	Statements []statementView `json:"statements"`
	Failed     int             `json:"failed"`
}

func viewOf(report *ingest.Report) reportView {
	out := reportView{
		BatchID:   report.BatchID,
		Namespace: report.Namespace,
		Failed:    report.FailedCount(),
	}
	for _, res := range report.Results {
		sv := statementView{
			Index:    res.Index,
			Kind:     res.Kind,
			Executed: res.Executed,
		}
		if res.Err != nil {
			sv.Error = res.Err.Error()
		}
		for _, h := range res.Entities {
			name := h.Entity.Label()
			if v := h.Entity.StringProp(h.Key.PropName); v != "" {
				name += ":" + v
			}
			sv.Entities = append(sv.Entities, name)
		}
		out.Statements = append(out.Statements, sv)
	}
	return out
}

// POST /api/v1/graphs/:namespace/ingest
func (h *GraphHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ns := c.Param("namespace")

	report, err := h.svc.IngestScript(c.Request.Context(), ns, req.Script)
	if err != nil {
		status := http.StatusInternalServerError
		code := "ingest_failed"
		if kind := kgerr.KindOf(err); kind == kgerr.UnterminatedLiteral {
			status = http.StatusBadRequest
			code = string(kind)
		}
		h.log.Warn("ingest failed", "namespace", ns, "error", err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, viewOf(report))
}

// POST /api/v1/graphs/:namespace/triples
func (h *GraphHandler) IngestTriples(c *gin.Context) {
	var req triplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ns := c.Param("namespace")

	report, err := h.svc.IngestTriples(c.Request.Context(), ns, req.Triples)
	if err != nil {
		h.log.Warn("triples ingest failed", "namespace", ns, "error", err)
		RespondError(c, http.StatusBadRequest, "ingest_failed", err)
		return
	}
	RespondOK(c, viewOf(report))
}

// GET /api/v1/graphs/:namespace/triples
func (h *GraphHandler) ListTriples(c *gin.Context) {
	ns := c.Param("namespace")
	ts, err := h.svc.AllTriples(c.Request.Context(), ns)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "read_failed", err)
		return
	}
	RespondOK(c, gin.H{"namespace": ns, "triples": ts})
}

// GET /api/v1/graphs/:namespace/top-nodes
func (h *GraphHandler) TopNodes(c *gin.Context) {
	ns := c.Param("namespace")
	limit := 10
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	top, err := h.svc.TopNodes(c.Request.Context(), ns, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "read_failed", err)
		return
	}
	RespondOK(c, gin.H{"namespace": ns, "nodes": top})
}

// GET /api/v1/graphs/:namespace/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	ns := c.Param("namespace")
	nodes, edges, err := h.svc.Counts(c.Request.Context(), ns)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "read_failed", err)
		return
	}
	RespondOK(c, gin.H{"namespace": ns, "nodes": nodes, "edges": edges})
}

// DELETE /api/v1/graphs/:namespace
func (h *GraphHandler) Drop(c *gin.Context) {
	ns := c.Param("namespace")
	stats, err := h.svc.DropNamespace(c.Request.Context(), ns)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "drop_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"namespace":     ns,
		"nodes_deleted": stats.NodesDeleted,
		"edges_deleted": stats.EdgesDeleted,
	})
}
