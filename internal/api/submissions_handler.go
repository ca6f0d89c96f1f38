package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cvintake/internal/api/middleware"
	"cvintake/internal/database"
)

const maxListLimit = 200

// SubmissionLister 读取投递流水。
type SubmissionLister interface {
	ListRecent(ctx context.Context, limit int) ([]database.Submission, error)
}

// SubmissionsHandler 提供内部的投递流水查询。
type SubmissionsHandler struct {
	ledger SubmissionLister
}

func NewSubmissionsHandler(ledger SubmissionLister) *SubmissionsHandler {
	return &SubmissionsHandler{ledger: ledger}
}

type submissionView struct {
	ApplicationID      string          `json:"applicationId"`
	ObjectKey          string          `json:"objectKey"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	CVURL              string          `json:"cvUrl"`
	Education          json.RawMessage `json:"education"`
	Qualifications     json.RawMessage `json:"qualifications"`
	Projects           json.RawMessage `json:"projects"`
	CorrelationID      string          `json:"correlationId"`
	ErrorCode          int             `json:"errorCode"`
	CreatedAt          time.Time       `json:"createdAt"`
	ConfirmationSentAt *time.Time      `json:"confirmationSentAt"`
	FollowUpAt         *time.Time      `json:"followUpAt"`
	FollowUpSentAt     *time.Time      `json:"followUpSentAt"`
}

// List 处理 GET /internal/submissions?limit=N。
func (h *SubmissionsHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	rows, err := h.ledger.ListRecent(c.Request.Context(), limit)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list submissions failed", slog.Any("error", err))
		Internal(c, "failed to list submissions")
		return
	}

	views := make([]submissionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, submissionView{
			ApplicationID:      row.ApplicationID,
			ObjectKey:          row.ObjectKey,
			Name:               row.Name,
			Email:              row.Email,
			Phone:              row.Phone,
			CVURL:              row.CVURL,
			Education:          rawSection(row.Education),
			Qualifications:     rawSection(row.Qualifications),
			Projects:           rawSection(row.Projects),
			CorrelationID:      row.CorrelationID,
			ErrorCode:          row.ErrorCode,
			CreatedAt:          row.CreatedAt,
			ConfirmationSentAt: row.ConfirmationSentAt,
			FollowUpAt:         row.FollowUpAt,
			FollowUpSentAt:     row.FollowUpSentAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"submissions": views, "count": len(views)})
}

func rawSection(data []byte) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(data)
}
