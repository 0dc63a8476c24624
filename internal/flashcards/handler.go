package flashcards

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kanjifinder/internal/auth"
	"kanjifinder/internal/sync"
	"kanjifinder/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *sync.Hub
}

func NewHandler(repo *Repo, hub *sync.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/flashcards", h.list)
	rg.POST("/flashcards", h.create)
	rg.POST("/flashcards/bulk", h.bulkCreate)
	rg.GET("/flashcards/jlpt/:level", h.listByJlpt)
	rg.GET("/flashcards/tag/:tag", h.listByTag)
	rg.GET("/flashcards/:id", h.getOne)
	rg.PUT("/flashcards/:id", h.update)
	rg.DELETE("/flashcards/:id", h.remove)
}

func (h *Handler) broadcast(ev sync.FlashcardEvent) {
	if h.Hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	go h.Hub.BroadcastJSON(ev)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cards, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) listByJlpt(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	level := strings.ToUpper(strings.TrimSpace(c.Param("level")))
	cards, err := h.Repo.ListByJlpt(c.Request.Context(), claims.UserID, level)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) listByTag(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tag := strings.TrimSpace(c.Param("tag"))
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag required"})
		return
	}

	cards, err := h.Repo.ListByTag(c.Request.Context(), claims.UserID, tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	card, err := h.Repo.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "flashcard not found"})
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var card models.Flashcard
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if strings.TrimSpace(card.Kanji) == "" || strings.TrimSpace(card.Meaning) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kanji and meaning required"})
		return
	}

	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	card.UserID = claims.UserID

	if err := h.Repo.Create(c.Request.Context(), card); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "create failed"})
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID, card.ID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	h.broadcast(sync.FlashcardEvent{
		Type:   sync.EventFlashcardUpdate,
		UserID: claims.UserID,
		CardID: saved.ID,
		Kanji:  saved.Kanji,
	})

	c.JSON(http.StatusCreated, saved)
}

// update merges non-empty request fields over the stored card, the same way
// the mobile edit flow sends only what changed.
func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	existing, err := h.Repo.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "flashcard not found"})
		return
	}

	var req models.Flashcard
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	merged := *existing
	if req.Kanji != "" {
		merged.Kanji = req.Kanji
	}
	if req.Meaning != "" {
		merged.Meaning = req.Meaning
	}
	if len(req.Readings.OnYomi) > 0 || len(req.Readings.KunYomi) > 0 {
		merged.Readings = req.Readings
	}
	if req.JLPT != "" {
		merged.JLPT = req.JLPT
	}
	if req.Notes != "" {
		merged.Notes = req.Notes
	}
	if len(req.Examples) > 0 {
		merged.Examples = req.Examples
	}
	if req.Mnemonic != "" {
		merged.Mnemonic = req.Mnemonic
	}
	if len(req.Tags) > 0 {
		merged.Tags = req.Tags
	}
	if req.ImageReference != "" {
		merged.ImageReference = req.ImageReference
	}

	ok, err := h.Repo.Update(c.Request.Context(), merged)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "flashcard not found"})
		return
	}

	h.broadcast(sync.FlashcardEvent{
		Type:   sync.EventFlashcardUpdate,
		UserID: claims.UserID,
		CardID: merged.ID,
		Kanji:  merged.Kanji,
	})

	c.JSON(http.StatusOK, merged)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Param("id")
	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "flashcard not found"})
		return
	}

	h.broadcast(sync.FlashcardEvent{
		Type:   sync.EventFlashcardDelete,
		UserID: claims.UserID,
		CardID: id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "flashcard removed"})
}

// bulkCreate is the sync upload endpoint. Inserts continue past individual
// failures; the response carries only the cards that landed. 201 means all of
// them did, 207 some, 400 none.
func (h *Handler) bulkCreate(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var cards []models.Flashcard
	if err := c.ShouldBindJSON(&cards); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(cards) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no flashcards provided"})
		return
	}

	for i := range cards {
		if cards[i].ID == "" {
			cards[i].ID = uuid.NewString()
		}
	}

	inserted, err := h.Repo.BulkCreate(c.Request.Context(), claims.UserID, cards)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no flashcards created"})
		return
	}

	h.broadcast(sync.FlashcardEvent{
		Type:   sync.EventFlashcardSync,
		UserID: claims.UserID,
		Count:  len(inserted),
	})

	status := http.StatusCreated
	message := fmt.Sprintf("%d flashcards created successfully", len(inserted))
	if len(inserted) < len(cards) {
		status = http.StatusMultiStatus
		message = fmt.Sprintf("%d flashcards created, some failed", len(inserted))
	}

	c.JSON(status, gin.H{
		"message":    message,
		"flashcards": inserted,
	})
}
