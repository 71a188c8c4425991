package handlers

import (
	"net/http"
	"time"

	"sahay/internal/models"
	"sahay/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler обслуживает комнату сессии, ее завершение, оценку и квиз
type SessionHandler struct {
	sessionService services.SessionService
	chatService    services.ChatService
}

func NewSessionHandler(sessionService services.SessionService, chatService services.ChatService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		chatService:    chatService,
	}
}

// SendMessageRequest представляет сообщение в комнату
type SendMessageRequest struct {
	Message string  `json:"message"`
	FileID  *string `json:"file_id"`
}

// RatingRequest представляет оценку партнера
type RatingRequest struct {
	Rating   int    `json:"rating" binding:"required"`
	Feedback string `json:"feedback"`
}

// QuizAnswersRequest представляет ответы на квиз, по букве на вопрос
type QuizAnswersRequest struct {
	Answers []string `json:"answers"`
}

// GetState возвращает состояние подбора и сессии
func (h *SessionHandler) GetState(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SendMessage добавляет сообщение в комнату
func (h *SessionHandler) SendMessage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var fileID *uuid.UUID
	if req.FileID != nil {
		id, err := uuid.Parse(*req.FileID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
			return
		}
		fileID = &id
	}

	message, err := h.chatService.SendMessage(actor, req.Message, fileID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// PollMessages возвращает сообщения новее ?since (RFC3339Nano). Без since возвращается вся история
func (h *SessionHandler) PollMessages(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var since time.Time
	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since, expected RFC3339 timestamp"})
			return
		}
		since = parsed.UTC()
	}

	result, err := h.chatService.PollMessages(actor, since)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":  result.Messages,
		"watermark": result.Watermark.Format(time.RFC3339Nano),
	})
}

// UploadFile принимает файл (multipart поле file) в комнату сессии
func (h *SessionHandler) UploadFile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()

	file, message, err := h.chatService.UploadFile(actor, services.FileUpload{
		Reader:      src,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"file": file, "message": message})
}

// ListFiles возвращает файлы текущей сессии
func (h *SessionHandler) ListFiles(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	files, err := h.chatService.ListFiles(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// DownloadFile отдает файл участнику сессии
func (h *SessionHandler) DownloadFile(c *gin.Context) {
	file, ok := h.loadFile(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.FileAttachment(file.FilePath, file.FileName)
}

// GetThumbnail отдает миниатюру изображения
func (h *SessionHandler) GetThumbnail(c *gin.Context) {
	file, ok := h.loadFile(c)
	if !ok {
		return
	}
	if file.ThumbnailPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Thumbnail not found"})
		return
	}

	c.Header("Content-Type", "image/jpeg")
	c.Header("Cache-Control", "private, max-age=86400")
	c.File(file.ThumbnailPath)
}

func (h *SessionHandler) loadFile(c *gin.Context) (*models.SessionFile, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
		return nil, false
	}

	file, err := h.chatService.GetFile(actor, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return file, true
}

// EndSession завершает сессию для обоих участников
func (h *SessionHandler) EndSession(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.sessionService.EndSession(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// FinishSession возвращает пользователя в пул, пропуская оставшиеся шаги
func (h *SessionHandler) FinishSession(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.sessionService.FinishSession(actor); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Back in the waiting pool"})
}

// SubmitRating сохраняет оценку партнера
func (h *SessionHandler) SubmitRating(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.sessionService.SubmitRating(actor, c.Param("match_id"), req.Rating, req.Feedback)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rating": rating})
}

// GenerateQuiz создает квиз по переписке сессии
func (h *SessionHandler) GenerateQuiz(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.sessionService.GenerateQuiz(c.Request.Context(), actor, c.Param("match_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	// Правильные ответы клиенту не отдаются
	questions := make([]gin.H, 0, len(result.Questions))
	for _, q := range result.Questions {
		questions = append(questions, gin.H{"question": q.Question, "options": q.Options})
	}
	response := gin.H{"questions": questions, "not_enough_content": result.NotEnoughContent}
	if result.Quiz != nil {
		response["quiz_id"] = result.Quiz.ID
	}
	c.JSON(http.StatusOK, response)
}

// SubmitQuiz проверяет ответы на квиз
func (h *SessionHandler) SubmitQuiz(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quiz ID"})
		return
	}
	var req QuizAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	score, err := h.sessionService.SubmitQuiz(actor, quizID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}
