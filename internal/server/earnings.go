package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	earningsdomain "github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/providers/pdf"
)

// GetRevenueSummary serves the dashboard cards. With X-View-ID the call
// joins that view's refresh sequence and a superseded result is not served.
func (s *Server) GetRevenueSummary(c *gin.Context) {
	req, err := s.parseSummaryRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	viewID := strings.TrimSpace(c.GetHeader(HeaderViewID))
	if viewID == "" || s.dashboardStates == nil {
		resp, err := s.earningsSvc.GetRevenueSummary(c.Request.Context(), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	state := s.dashboardStates.State(req.CreatorID, viewID)
	resp, published, err := s.earningsSvc.Refresh(c.Request.Context(), state, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if published {
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	latest, _, ok := state.Latest()
	if !ok {
		AbortWithError(c, ErrConflict)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": latest, "stale": true})
}

func (s *Server) GetLessonEarnings(c *gin.Context) {
	req, err := s.parseSummaryRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.earningsSvc.GetLessonEarnings(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSequencerEarnings(c *gin.Context) {
	req, err := s.parseSummaryRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.earningsSvc.GetSequencerEarnings(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDiscountEarnings(c *gin.Context) {
	resp, err := s.earningsSvc.GetDiscountEarnings(c.Request.Context(), strings.TrimSpace(c.Param("creator_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportEarnings(c *gin.Context) {
	req, err := s.parseSummaryRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stream, err := earningsdomain.ParseStream(c.Param("stream"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	format, err := earningsdomain.ParseExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	file, err := s.earningsSvc.Export(c.Request.Context(), earningsdomain.ExportRequest{
		SummaryRequest: req,
		Stream:         stream,
		Format:         format,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

func (s *Server) GetEarningsStatement(c *gin.Context) {
	req, err := s.parseSummaryRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.statements == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	summary, err := s.earningsSvc.GetRevenueSummary(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	lessons, err := s.earningsSvc.GetLessonEarnings(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sequencer, err := s.earningsSvc.GetSequencerEarnings(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now().In(s.location)
	doc, err := s.statements.GenerateStatement(ctx, pdf.StatementData{
		CreatorID:   req.CreatorID,
		PeriodLabel: string(req.Period),
		GeneratedAt: now,
		Summary:     summary,
		Lessons:     lessons,
		Sequencer:   sequencer,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if doc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(pdf.StatementFilename(req.CreatorID, string(req.Period), now)))
	c.Data(http.StatusOK, pdf.ContentType, body)
}

func (s *Server) GetPlatformOverview(c *gin.Context) {
	req, err := s.parseSummaryRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	creatorIDs := parseCreatorIDs(c.QueryArray("creator_ids"))
	if len(creatorIDs) == 0 {
		AbortWithError(c, newValidationError("creator_ids", "required", "creator_ids is required"))
		return
	}

	resp, err := s.earningsSvc.GetPlatformOverview(c.Request.Context(), earningsdomain.OverviewRequest{
		CreatorIDs: creatorIDs,
		Period:     req.Period,
		Custom:     req.Custom,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
