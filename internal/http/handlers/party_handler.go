package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pull-party-bot/internal/domain"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PartyLister is the read side of the party directory used by the API.
// Implementations must honor ctx cancellation.
type PartyLister interface {
	// ListPage returns one page (1-based) of a chat's parties and the total.
	ListPage(ctx context.Context, chatID int64, page, pageSize int) ([]domain.Party, int64, error)
	// Stats returns the party count and latest change time of a chat.
	Stats(ctx context.Context, chatID int64) (int64, *time.Time, error)
}

// UpdateDecoder turns a webhook request into a platform update. ok is false
// for update kinds the bot ignores.
type UpdateDecoder interface {
	DecodeWebhook(r *http.Request) (u platform.Update, ok bool, err error)
}

// Handlers groups the HTTP endpoints. Either dependency may be nil when the
// corresponding route is not mounted.
type Handlers struct {
	parties PartyLister
	decoder UpdateDecoder
	updates chan<- platform.Update

	// enqueueWait bounds how long a webhook call waits for dispatcher capacity.
	enqueueWait time.Duration
}

// New constructs Handlers. Webhook updates are pushed into updates.
func New(parties PartyLister, decoder UpdateDecoder, updates chan<- platform.Update) *Handlers {
	return &Handlers{
		parties:     parties,
		decoder:     decoder,
		updates:     updates,
		enqueueWait: 5 * time.Second,
	}
}

// PartyDTO is the API view of a party.
type PartyDTO struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	LastUse   time.Time `json:"last_use"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListPartiesResponse wraps a page of parties.
type ListPartiesResponse struct {
	ChatID     int64      `json:"chat_id"`
	Parties    []PartyDTO `json:"parties"`
	Pagination Pagination `json:"pagination"`
}

// ListParties godoc
// @ID          listParties
// @Summary     List a chat's parties (paginated)
// @Description Returns a page of the chat's parties with their members.
// @Description Carries a weak ETag built from the party count, the latest change (update or pull) and the page; a matching If-None-Match returns 304.
// @Tags        Parties
// @Produce     json
// @Security    BearerAuth
//
// @Param       Authorization  header  string  true  "Bearer API token"            example(Bearer s3cr3t)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"parties:-100:1:0:1:20\")
// @Param       chatId         path    int     true  "Platform chat ID"            example(-1001234567890)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPartiesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or wrong token"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/{chatId}/parties [get]
func (h *Handlers) ListParties(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be an integer")
		return
	}
	ctx := c.Request.Context()
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.parties.Stats(ctx, chatID); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"parties:%d:%d:%d:%d:%d"`, chatID, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.parties.ListPage(ctx, chatID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	dtos := make([]PartyDTO, 0, len(items))
	for _, p := range items {
		dtos = append(dtos, PartyDTO{
			ID:        p.ID,
			Name:      p.Name,
			Members:   p.Members(),
			LastUse:   p.LastUse,
			UpdatedAt: p.UpdatedAt,
		})
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListPartiesResponse{
		ChatID:  chatID,
		Parties: dtos,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
