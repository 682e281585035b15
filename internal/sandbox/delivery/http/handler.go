package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/middleware"
	authmodels "access-tool/internal/features/auth/models"
	chatmodels "access-tool/internal/features/chat/models"
	walletmodels "access-tool/internal/features/wallet/models"
	"access-tool/internal/sandbox/models"
	"access-tool/internal/sandbox/service"
)

// Handler serves the access API the client talks to.
type Handler struct {
	auth      *service.Auth
	chats     *service.Chats
	rules     *service.Rules
	resources *service.Resources
	wallets   *service.Wallets
	adminIDs  []int64
	logger    *zap.Logger
}

type Services struct {
	Auth      *service.Auth
	Chats     *service.Chats
	Rules     *service.Rules
	Resources *service.Resources
	Wallets   *service.Wallets
}

func NewHandler(svc Services, adminIDs []int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		auth:      svc.Auth,
		chats:     svc.Chats,
		rules:     svc.Rules,
		resources: svc.Resources,
		wallets:   svc.Wallets,
		adminIDs:  adminIDs,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/telegram", h.login)

	authed := router.Group("")
	authed.Use(middleware.BearerAuth(h.auth), middleware.AutoCreateUser(h.wallets))
	{
		users := authed.Group("/users")
		{
			users.GET("/me", h.me)
			users.POST("/wallet", h.linkWallet)
			users.PUT("/wallet", h.selectWallet)
			users.DELETE("/wallet", h.unlinkWallet)
		}

		authed.GET("/system/async-tasks/:taskId", h.getTask)

		chats := authed.Group("/chats")
		{
			chats.GET("/", h.listPublicChats)
			chats.GET("/:slug", h.getUserChat)
		}
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin(h.adminIDs))
	{
		chats := admin.Group("/chats")
		{
			chats.GET("", h.listAdminChats)
			chats.GET("/:slug", h.getAdminChat)
			chats.PUT("/:slug", h.updateDescription)
			chats.PUT("/:slug/visibility", h.updateVisibility)
			chats.PUT("/:slug/control", h.updateControl)
			chats.PUT("/:slug/rules/move", h.moveRule)

			chats.GET("/:slug/rules/:typePath", h.listRules)
			chats.POST("/:slug/rules/:typePath", h.createRule)
			chats.GET("/:slug/rules/:typePath/:id", h.getRule)
			chats.PUT("/:slug/rules/:typePath/:id", h.updateRule)
			chats.DELETE("/:slug/rules/:typePath/:id", h.deleteRule)
		}

		resources := admin.Group("/resources")
		{
			resources.GET("/prefetch/:typePath", h.prefetch)
			resources.GET("/categories/:typePath", h.categories)
		}
	}
}

// RegisterSandboxRoutes adds the development helpers: minting init data for a test user
// and flipping the bot privileges of a chat. They need no token.
func (h *Handler) RegisterSandboxRoutes(router *gin.RouterGroup) {
	sandbox := router.Group("/sandbox")
	{
		sandbox.POST("/initdata", h.mintInitData)
		sandbox.PUT("/chats/:slug/bot", h.setBotAdmin)
	}
}

// @Summary Вход по init data Telegram
// @Tags auth
// @Accept json
// @Produce json
// @Param input body authmodels.TelegramAuthRequest true "Init data"
// @Success 200 {object} authmodels.TokenResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/telegram [post]
func (h *Handler) login(c *gin.Context) {
	var req authmodels.TelegramAuthRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req.InitDataRaw)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.wallets.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Привязать кошелек
// @Description Проверка ton_proof выполняется фоновой задачей, статус в /system/async-tasks/{taskId}
// @Tags users
// @Router /users/wallet [post]
func (h *Handler) linkWallet(c *gin.Context) {
	var req walletmodels.LinkRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.wallets.Link(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) selectWallet(c *gin.Context) {
	var req walletmodels.SelectRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.wallets.Select(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) unlinkWallet(c *gin.Context) {
	if err := h.wallets.Unlink(c.Request.Context(), middleware.UserID(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.wallets.Task(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary Публичный каталог чатов
// @Tags chats
// @Param orderBy query string false "members, title или created"
// @Router /chats/ [get]
func (h *Handler) listPublicChats(c *gin.Context) {
	items, err := h.chats.ListPublic(c.Request.Context(), c.Query("orderBy"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getUserChat(c *gin.Context) {
	resp, err := h.chats.UserChat(c.Request.Context(), c.Param("slug"), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listAdminChats(c *gin.Context) {
	items, err := h.chats.ListAdmin(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getAdminChat(c *gin.Context) {
	resp, err := h.chats.AdminChat(c.Request.Context(), c.Param("slug"), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updateDescription(c *gin.Context) {
	var req chatmodels.DescriptionRequest
	if !bind(c, &req) {
		return
	}
	h.respondChat(c)(h.chats.UpdateDescription(c.Request.Context(), c.Param("slug"), req))
}

func (h *Handler) updateVisibility(c *gin.Context) {
	var req chatmodels.VisibilityRequest
	if !bind(c, &req) {
		return
	}
	h.respondChat(c)(h.chats.UpdateVisibility(c.Request.Context(), c.Param("slug"), req))
}

func (h *Handler) updateControl(c *gin.Context) {
	var req chatmodels.ControlRequest
	if !bind(c, &req) {
		return
	}
	h.respondChat(c)(h.chats.UpdateControl(c.Request.Context(), c.Param("slug"), req))
}

// @Summary Перенести условие в другую группу или позицию
// @Tags admin
// @Param input body chatmodels.MoveRequest true "Куда переносим"
// @Success 204
// @Router /admin/chats/{slug}/rules/move [put]
func (h *Handler) moveRule(c *gin.Context) {
	var req chatmodels.MoveRequest
	if !bind(c, &req) {
		return
	}
	if err := h.chats.MoveRule(c.Request.Context(), c.Param("slug"), req); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listRules(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context(), c.Param("slug"), c.Param("typePath"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) getRule(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	rule, err := h.rules.Get(c.Request.Context(), c.Param("slug"), c.Param("typePath"), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) createRule(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeValidation, "Failed to read request body"))
		return
	}
	rule, err := h.rules.Decode(c.Param("typePath"), body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	created, err := h.rules.Create(c.Request.Context(), c.Param("slug"), rule)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateRule(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeValidation, "Failed to read request body"))
		return
	}
	rule, err := h.rules.Decode(c.Param("typePath"), body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	updated, err := h.rules.Update(c.Request.Context(), c.Param("slug"), id, rule)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteRule(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), c.Param("slug"), c.Param("typePath"), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) prefetch(c *gin.Context) {
	meta, err := h.resources.Prefetch(c.Param("typePath"), c.Query("address"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) categories(c *gin.Context) {
	list, err := h.resources.Categories(c.Param("typePath"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) mintInitData(c *gin.Context) {
	var req models.InitDataRequest
	if !bind(c, &req) {
		return
	}
	raw, err := h.auth.InitDataFor(req)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to sign init data"))
		return
	}
	c.JSON(http.StatusOK, models.InitDataResponse{InitDataRaw: raw})
}

func (h *Handler) setBotAdmin(c *gin.Context) {
	var req models.BotAdminRequest
	if !bind(c, &req) {
		return
	}
	h.respondChat(c)(h.chats.SetBotAdmin(c.Request.Context(), c.Param("slug"), req.IsAdmin))
}

func (h *Handler) respondChat(c *gin.Context) func(chatmodels.Chat, error) {
	return func(chat chatmodels.Chat, err error) {
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, chat)
	}
}
