package admin

import (
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/crispchris33/security-advisor-chatbot/internal/auth"
	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
	"github.com/crispchris33/security-advisor-chatbot/internal/errors"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/signal"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

// Handler serves the admin console API. Each acting admin gets their
// own Console so search/sort/page state doesn't bleed between two
// admins working at once.
type Handler struct {
	gw      store.Gateway
	refresh *signal.Broadcaster

	mu       sync.Mutex
	consoles map[string]*Console
}

func NewHandler(gw store.Gateway, refresh *signal.Broadcaster) *Handler {
	return &Handler{
		gw:       gw,
		refresh:  refresh,
		consoles: make(map[string]*Console),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, requireAdmin gin.HandlerFunc) {
	admin := router.Group(constants.AdminRouteGroup)
	admin.Use(requireAdmin)
	{
		admin.GET(constants.UsersRoute, h.handleListUsers)
		admin.POST(constants.UsersRoute+"/status", h.handleSetStatus)
		admin.POST(constants.UsersRoute+"/role", h.handleSetRole)
		admin.POST(constants.UsersRoute+"/allowance", h.handleSetAllowance)
		admin.POST(constants.UsersRoute+"/reload", h.handleReload)
		admin.DELETE(constants.UsersRoute+"/:email", h.handleDelete)
	}
}

func (h *Handler) consoleFor(c *gin.Context) *Console {
	key := auth.AdminKey(c)
	h.mu.Lock()
	defer h.mu.Unlock()
	con, ok := h.consoles[key]
	if !ok {
		con = NewConsole(h.gw, h.refresh)
		h.consoles[key] = con
	}
	return con
}

func (h *Handler) handleListUsers(c *gin.Context) {
	con := h.consoleFor(c)
	if err := con.Load(c.Request.Context()); err != nil {
		log.Printf("Console load failed: %v", err)
		errors.InternalServerError(c, "Failed to retrieve users")
		return
	}

	if search, ok := c.GetQuery("search"); ok {
		con.SetSearch(search)
	}
	if sortKey, ok := c.GetQuery("sort"); ok {
		if err := con.SortBy(sortKey); err != nil {
			errors.BadRequest(c, err.Error())
			return
		}
	}
	if pageStr, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			errors.BadRequest(c, "page must be an integer")
			return
		}
		con.SetPage(page)
	}

	c.JSON(http.StatusOK, con.View())
}

func (h *Handler) handleReload(c *gin.Context) {
	con := h.consoleFor(c)
	if err := con.Reload(c.Request.Context()); err != nil {
		errors.InternalServerError(c, "Failed to reload users")
		return
	}
	c.JSON(http.StatusOK, con.View())
}

func (h *Handler) handleSetStatus(c *gin.Context) {
	var req struct {
		Email  string        `json:"email" binding:"required"`
		Status models.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request")
		return
	}
	if !req.Status.Valid() {
		errors.BadRequest(c, "Status must be 'pending', 'approved', or 'disabled'")
		return
	}

	if err := h.consoleFor(c).SetStatus(c.Request.Context(), req.Email, req.Status); err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User status updated successfully"})
}

func (h *Handler) handleSetRole(c *gin.Context) {
	var req struct {
		Email   string `json:"email" binding:"required"`
		IsAdmin *bool  `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request")
		return
	}

	if err := h.consoleFor(c).SetAdminRole(c.Request.Context(), req.Email, *req.IsAdmin); err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admin role updated successfully"})
}

func (h *Handler) handleSetAllowance(c *gin.Context) {
	var req struct {
		Email         string `json:"email" binding:"required"`
		ChatAllowance *int   `json:"chat_allowance" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "Invalid request")
		return
	}
	if *req.ChatAllowance < 0 {
		errors.BadRequest(c, "Chat allowance must be >= 0")
		return
	}

	if err := h.consoleFor(c).SetChatAllowance(c.Request.Context(), req.Email, *req.ChatAllowance); err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat allowance updated successfully"})
}

// handleDelete requires confirm=true; the front end's confirmation
// dialog sets it, so a bare DELETE can never destroy a record.
func (h *Handler) handleDelete(c *gin.Context) {
	email := c.Param("email")
	if c.Query("confirm") != "true" {
		errors.BadRequest(c, constants.MsgDeleteNeedsCheck)
		return
	}

	if err := h.consoleFor(c).Remove(c.Request.Context(), email); err != nil {
		h.writeMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *Handler) writeMutationError(c *gin.Context, err error) {
	log.Printf("Admin mutation failed: %v", err)
	if errors.Is(err, errors.ErrNotFound) {
		errors.NotFound(c, "No record for that email")
		return
	}
	errors.InternalServerError(c, "Update failed; the table was rolled back")
}
