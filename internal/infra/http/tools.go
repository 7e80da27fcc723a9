package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"arbiter/internal/domain"
	"arbiter/internal/infra/sla"
)

type merkleRootRequest struct {
	Leaves []string `json:"leaves"`
}

type merkleRootResponse struct {
	TreeSize int            `json:"tree_size"`
	Root     *domain.Digest `json:"root"`
}

type merkleInclusionRequest struct {
	Leaves []string `json:"leaves"`
	Index  int      `json:"index"`
}

type merkleInclusionResponse struct {
	TreeSize int               `json:"tree_size"`
	Index    int               `json:"index"`
	Leaf     *domain.Digest    `json:"leaf"`
	Path     []domain.PathStep `json:"path"`
	Root     *domain.Digest    `json:"root"`
}

type pathStepInput struct {
	Sibling string `json:"sibling"`
	Side    string `json:"side"`
}

type merkleVerifyRequest struct {
	Leaf  string          `json:"leaf"`
	Index int64           `json:"index"`
	Path  []pathStepInput `json:"path"`
	Root  string          `json:"root"`
}

type slaResponse struct {
	Outages   int    `json:"outages"`
	Downtime  string `json:"downtime"`
	Threshold string `json:"threshold"`
	Breached  bool   `json:"breached"`
	Summary   string `json:"summary"`
}

func (s *Server) handleMerkleRoot(c *gin.Context) {
	var req merkleRootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	leaves, err := domain.ParseDigests(req.Leaves)
	if err != nil {
		writeError(c, err)
		return
	}
	out := merkleRootResponse{TreeSize: len(leaves)}
	if root, ok := s.merkle.Root(leaves); ok {
		out.Root = &root
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleMerkleInclusion(c *gin.Context) {
	var req merkleInclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	leaves, err := domain.ParseDigests(req.Leaves)
	if err != nil {
		writeError(c, err)
		return
	}
	path, err := s.merkle.InclusionPath(req.Index, leaves)
	if err != nil {
		writeError(c, err)
		return
	}
	out := merkleInclusionResponse{TreeSize: len(leaves), Index: req.Index, Path: path}
	if root, ok := s.merkle.Root(leaves); ok {
		leaf := leaves[req.Index]
		out.Leaf = &leaf
		out.Root = &root
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleMerkleVerify(c *gin.Context) {
	var req merkleVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	leaf, err := domain.ParseDigest(req.Leaf)
	if err != nil {
		writeError(c, err)
		return
	}
	root, err := domain.ParseDigest(req.Root)
	if err != nil {
		writeError(c, err)
		return
	}
	path := make([]domain.PathStep, 0, len(req.Path))
	for _, step := range req.Path {
		sibling, err := domain.ParseDigest(step.Sibling)
		if err != nil {
			writeError(c, err)
			return
		}
		path = append(path, domain.PathStep{Sibling: sibling, Side: domain.Side(step.Side)})
	}
	valid, err := s.merkle.VerifyInclusion(leaf, req.Index, path, root)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (s *Server) handleSLACheck(c *gin.Context) {
	threshold := sla.DefaultThreshold
	if raw := c.PostForm("threshold"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "threshold must be a positive duration such as 4h")
			return
		}
		threshold = parsed
	}
	fh, err := c.FormFile("file")
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "multipart file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	report, err := sla.Check(f, threshold)
	if err != nil {
		var rowErr *sla.RowError
		if errors.As(err, &rowErr) {
			writeErrorDetails(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), map[string]any{"line": rowErr.Line})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slaResponse{
		Outages:   len(report.Outages),
		Downtime:  report.Downtime.String(),
		Threshold: report.Threshold.String(),
		Breached:  report.Breached,
		Summary:   report.Summary(),
	})
}
