package handlers

import (
	"net/http"

	"sahay/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MatchHandler представляет обработчик подбора пар
type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// ProposeRequest представляет запрос на предложение пары
type ProposeRequest struct {
	CandidateID string `json:"candidate_id" binding:"required"`
}

// FindMatch возвращает лучшего кандидата без изменения состояния
func (h *MatchHandler) FindMatch(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	candidate, err := h.matchService.FindMatch(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidate": candidate})
}

// ProposeMatch предлагает пару выбранному кандидату
func (h *MatchHandler) ProposeMatch(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidate ID"})
		return
	}

	matchID, err := h.matchService.ProposeMatch(actor, candidateID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"match_id": matchID})
}

// MatchNow ищет кандидата и сразу предлагает пару
func (h *MatchHandler) MatchNow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	candidate, matchID, err := h.matchService.MatchNow(actor)
	if err != nil {
		writeError(c, err)
		return
	}
	if candidate == nil {
		c.JSON(http.StatusOK, gin.H{"candidate": nil, "message": "No suitable partner is waiting right now"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"candidate": candidate, "match_id": matchID})
}

// AcceptMatch подтверждает предложенную пару
func (h *MatchHandler) AcceptMatch(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	state, err := h.matchService.AcceptMatch(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// DeclineMatch отклоняет предложенную пару
func (h *MatchHandler) DeclineMatch(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.matchService.DeclineMatch(actor); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Match declined"})
}
