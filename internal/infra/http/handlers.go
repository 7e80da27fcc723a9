package http

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"arbiter/internal/domain"
	"arbiter/internal/infra/award"
	"arbiter/internal/infra/bundles"
	"arbiter/internal/infra/evidence"
	"arbiter/internal/infra/presets"
	"arbiter/internal/usecase"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type openCaseRequest struct {
	Preset string `json:"preset"`
	Notes  string `json:"notes"`
}

type presetResponse struct {
	domain.Preset
	Summary string `json:"summary"`
}

type inclusionResponse struct {
	CaseID   string            `json:"case_id"`
	Name     string            `json:"name"`
	Index    int               `json:"index"`
	Leaf     domain.Digest     `json:"leaf"`
	Path     []domain.PathStep `json:"path"`
	Root     domain.Digest     `json:"root"`
	Verified bool              `json:"verified"`
}

func (s *Server) handleListPresets(c *gin.Context) {
	defaultKey := s.presets.Default().Key
	items := s.presets.List()
	out := make([]presetResponse, 0, len(items))
	for _, p := range items {
		p.Default = p.Key == defaultKey
		out = append(out, presetResponse{Preset: p, Summary: presets.Describe(p)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleVisibility(c *gin.Context) {
	if s.visibility == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	vis, err := s.visibility.Evaluate(c.Request.Context(), c.Query("role"), caseSections)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vis)
}

func (s *Server) handleOpenCase(c *gin.Context) {
	var req openCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	opened, err := s.cases.Open(c.Request.Context(), usecase.OpenInput{Preset: req.Preset, Notes: req.Notes})
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeCase(c, http.StatusCreated, opened)
}

func (s *Server) handleListCases(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := s.cases.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	vis, err := s.visibilityFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]caseView, 0, len(list))
	for _, item := range list {
		out = append(out, buildCaseView(item, vis))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetCase(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}
	found, err := s.cases.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeCase(c, http.StatusOK, found)
}

func (s *Server) handleAttachEvidence(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "multipart form with files is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "add at least one evidence file")
		return
	}
	sources := make([]evidence.Source, 0, len(headers))
	for _, fh := range headers {
		sources = append(sources, multipartSource(fh))
	}
	files, err := s.hasher.HashFiles(c.Request.Context(), sources)
	if err != nil {
		writeError(c, err)
		return
	}
	updated, err := s.cases.AttachEvidence(c.Request.Context(), id, files)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeCase(c, http.StatusOK, updated)
}

func multipartSource(fh *multipart.FileHeader) evidence.Source {
	return evidence.Source{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func (s *Server) handleAdvance(step domain.Step) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := caseIDParam(c)
		if !ok {
			return
		}
		updated, err := s.cases.Advance(c.Request.Context(), id, step)
		if err != nil {
			writeError(c, err)
			return
		}
		s.writeCase(c, http.StatusOK, updated)
	}
}

func (s *Server) handleInclusion(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "index must be an integer")
		return
	}
	if !s.requireSection(c, sectionInclusions) {
		return
	}
	rec, err := s.cases.Inclusion(c.Request.Context(), id, index)
	if err != nil {
		writeError(c, err)
		return
	}
	current, err := s.cases.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	verified, err := s.merkle.VerifyInclusion(rec.Leaf, int64(rec.Index), rec.Path, rec.Root)
	if err != nil {
		writeError(c, err)
		return
	}
	name := ""
	if rec.Index < len(current.Evidence) {
		name = current.Evidence[rec.Index].Name
	}
	c.JSON(http.StatusOK, inclusionResponse{
		CaseID:   id.String(),
		Name:     name,
		Index:    rec.Index,
		Leaf:     rec.Leaf,
		Path:     rec.Path,
		Root:     rec.Root,
		Verified: verified,
	})
}

func (s *Server) handleExport(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}
	format, err := bundles.ParseFormat(c.DefaultQuery("format", string(bundles.FormatJSON)))
	if err != nil {
		writeError(c, err)
		return
	}
	if !s.requireSection(c, sectionAudit) {
		return
	}
	found, err := s.cases.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	doc, err := bundles.Export(found, format, s.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Header("X-Content-SHA256", doc.Digest.Hex())
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (s *Server) handleAward(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}
	found, err := s.cases.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	vis, err := s.visibilityFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	preset, _ := s.presets.Get(found.Preset)
	var buf bytes.Buffer
	err = award.Render(&buf, found, preset, award.Options{
		Watermark:      s.cfg.AwardWatermark,
		IssuedAt:       s.now(),
		OmitEvidence:   !vis.Allows(sectionEvidence),
		OmitSignatures: !vis.Allows(sectionSignatures),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="award-`+found.ID.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) writeCase(c *gin.Context, status int, found domain.Case) {
	vis, err := s.visibilityFor(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, buildCaseView(found, vis))
}

func (s *Server) requireSection(c *gin.Context, section string) bool {
	vis, err := s.visibilityFor(c)
	if err != nil {
		writeError(c, err)
		return false
	}
	if !vis.Allows(section) {
		writeError(c, domain.ErrForbidden)
		return false
	}
	return true
}

func caseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("case_id"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "case_id must be a UUID")
		return uuid.UUID{}, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrOutOfRange):
		status, code = http.StatusBadRequest, "OUT_OF_RANGE"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, evidence.ErrTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "TOO_LARGE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrStaleVersion):
		status, code = http.StatusConflict, "STALE_VERSION"
	case errors.Is(err, domain.ErrPreconditionFailed):
		status, code = http.StatusPreconditionFailed, "PRECONDITION_FAILED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrProofRejected):
		status, code = http.StatusUnprocessableEntity, "PROOF_REJECTED"
	case errors.Is(err, domain.ErrNotAnchored):
		status, code = http.StatusBadGateway, "NOT_ANCHORED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	writeErrorDetails(c, status, code, message, nil)
}

func writeErrorDetails(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
