package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/yumeworks/agora/internal/domain"
	"github.com/yumeworks/agora/internal/present/rest/presenter"
	"github.com/yumeworks/agora/internal/usecase"
)

// RealtimeStreamer pumps group events for the subscribed channels. The
// streamer owns the output channel: it stops sending and returns once
// ctx is cancelled, and the caller must never close either channel.
type RealtimeStreamer interface {
	Realtime(ctx context.Context, input chan []string, output chan domain.GroupEvent)
}

type Handler struct {
	auth     *usecase.AuthUsecase
	users    *usecase.UserUsecase
	roles    *usecase.RoleUsecase
	groups   *usecase.GroupUsecase
	messages *usecase.MessageUsecase
	signal   RealtimeStreamer
}

func NewHandler(
	auth *usecase.AuthUsecase,
	users *usecase.UserUsecase,
	roles *usecase.RoleUsecase,
	groups *usecase.GroupUsecase,
	messages *usecase.MessageUsecase,
	signal RealtimeStreamer,
) *Handler {
	return &Handler{
		auth:     auth,
		users:    users,
		roles:    roles,
		groups:   groups,
		messages: messages,
		signal:   signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/auth/challenge", h.handleChallenge)
	e.POST("/api/v1/auth/connect", h.handleConnect)

	e.POST("/api/v1/users", h.handleCreateUser)
	e.GET("/api/v1/users", h.handleListUsers)
	e.GET("/api/v1/users/:id", h.handleGetUser)
	e.PUT("/api/v1/users/:id", h.handleUpdateUser)
	e.DELETE("/api/v1/users/:id", h.handleDeleteUser)
	e.GET("/api/v1/users/:id/roles", h.handleUserRoles)

	e.POST("/api/v1/roles", h.handleCreateRole)
	e.GET("/api/v1/roles/:id", h.handleGetRole)
	e.PUT("/api/v1/roles/:id", h.handleUpdateRole)
	e.DELETE("/api/v1/roles/:id", h.handleDeleteRole)

	e.POST("/api/v1/groups", h.handleCreateGroup)
	e.GET("/api/v1/groups", h.handleListGroups)
	e.GET("/api/v1/groups/:id", h.handleGetGroup)
	e.PUT("/api/v1/groups/:id", h.handleUpdateGroup)
	e.DELETE("/api/v1/groups/:id", h.handleDeleteGroup)
	e.POST("/api/v1/groups/:id/members", h.handleJoinGroup)
	e.DELETE("/api/v1/groups/:id/members/me", h.handleLeaveGroup)
	e.DELETE("/api/v1/groups/:id/members/:userId", h.handleRemoveMember)
	e.GET("/api/v1/groups/:id/items", h.handleGroupItems)
	e.POST("/api/v1/groups/:id/items", h.handleAddItem)
	e.DELETE("/api/v1/groups/:id/items/:itemId", h.handleDetachItem)
	e.DELETE("/api/v1/groups/:id/items/:itemId/listing", h.handleSoftDeleteItem)

	e.POST("/api/v1/messages", h.handleSendMessage)
	e.GET("/api/v1/messages/:userId", h.handleConversation)

	e.GET("/realtime", h.handleRealtime)
}

// requester returns the authenticated user id, empty when anonymous.
func requester(c echo.Context) string {
	id, _ := c.Request().Context().Value(domain.RequesterIDCtxKey).(string)
	return id
}

// --- auth ---

type challengeRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (h *Handler) handleChallenge(c echo.Context) error {
	ctx := c.Request().Context()

	var req challengeRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	nonce, err := h.auth.RequestChallenge(ctx, req.WalletAddress)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"nonce": nonce})
}

type connectRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

func (h *Handler) handleConnect(c echo.Context) error {
	ctx := c.Request().Context()

	var req connectRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	result, err := h.auth.Connect(ctx, req.WalletAddress, req.Signature)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

// --- users ---

type createUserRequest struct {
	DisplayName   string   `json:"displayName"`
	Email         *string  `json:"email"`
	WalletAddress string   `json:"walletAddress"`
	Roles         []string `json:"roles"`
}

func (h *Handler) handleCreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	var requestorID *string
	if id := requester(c); id != "" {
		requestorID = &id
	}

	user, err := h.users.Create(ctx, usecase.CreateUserInput{
		DisplayName:   req.DisplayName,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Roles:         req.Roles,
	}, requestorID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, user)
}

func (h *Handler) handleListUsers(c echo.Context) error {
	users, err := h.users.ListActive(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, users)
}

func (h *Handler) handleGetUser(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, user)
}

type updateUserRequest struct {
	DisplayName   *string  `json:"displayName"`
	Email         *string  `json:"email"`
	WalletAddress string   `json:"walletAddress"`
	Roles         []string `json:"roles"`
}

func (h *Handler) handleUpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	requestorID := requester(c)
	if requestorID == "" {
		return presenter.Unauthenticated(c)
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	user, err := h.users.Update(ctx, c.Param("id"), usecase.UpdateUserInput{
		DisplayName:   req.DisplayName,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Roles:         req.Roles,
	}, requestorID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, user)
}

func (h *Handler) handleDeleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	requestorID := requester(c)
	if requestorID == "" {
		return presenter.Unauthenticated(c)
	}

	targetID := c.Param("id")
	if requestorID != targetID {
		isAdmin, err := h.roles.IsAdmin(ctx, requestorID)
		if err != nil {
			return presenter.Error(c, err)
		}
		if !isAdmin {
			return presenter.Error(c, domain.UnauthorizedError{Action: "delete this user"})
		}
	}

	if err := h.users.SoftDeleteAndCleanup(ctx, targetID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleUserRoles(c echo.Context) error {
	ctx := c.Request().Context()

	userID := c.Param("id")
	scope := c.QueryParam("scope")

	switch scope {
	case "global":
		names, err := h.roles.GlobalRolesOf(ctx, userID)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, names)
	case "scoped":
		names, err := h.roles.ScopedRolesOf(ctx, userID, c.QueryParam("groupId"))
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, names)
	default:
		names, err := h.roles.RolesOf(ctx, userID)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, names)
	}
}

// --- roles ---

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateRole(c echo.Context) error {
	ctx := c.Request().Context()

	requestorID := requester(c)
	if requestorID == "" {
		return presenter.Unauthenticated(c)
	}

	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	role, err := h.roles.CreateRole(ctx, usecase.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
	}, requestorID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, role)
}

func (h *Handler) handleGetRole(c echo.Context) error {
	role, err := h.roles.GetRole(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, role)
}

func (h *Handler) handleUpdateRole(c echo.Context) error {
	ctx := c.Request().Context()

	requestorID := requester(c)
	if requestorID == "" {
		return presenter.Unauthenticated(c)
	}

	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	role, err := h.roles.UpdateRole(ctx, c.Param("id"), req.Description, requestorID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, role)
}

func (h *Handler) handleDeleteRole(c echo.Context) error {
	ctx := c.Request().Context()

	requestorID := requester(c)
	if requestorID == "" {
		return presenter.Unauthenticated(c)
	}

	if err := h.roles.DeleteRole(ctx, c.Param("id"), requestorID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

// --- groups ---

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	IsPublic    bool   `json:"isPublic"`
}

func (h *Handler) handleCreateGroup(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID := requester(c)
	if ownerID == "" {
		return presenter.Unauthenticated(c)
	}

	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	group, err := h.groups.Create(ctx, usecase.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
	}, ownerID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, group)
}

func (h *Handler) handleListGroups(c echo.Context) error {
	var isPublic *bool
	switch c.QueryParam("visibility") {
	case "public":
		v := true
		isPublic = &v
	case "private":
		v := false
		isPublic = &v
	}

	groups, err := h.groups.ListGroups(c.Request().Context(), isPublic)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, groups)
}

func (h *Handler) handleGetGroup(c echo.Context) error {
	group, err := h.groups.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, group)
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

func (h *Handler) handleUpdateGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	var req updateGroupRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	group, err := h.groups.Update(ctx, c.Param("id"), userID, domain.GroupChanges{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, group)
}

func (h *Handler) handleDeleteGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	if err := h.groups.DeleteByOwner(ctx, c.Param("id"), userID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleJoinGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	if err := h.groups.AddMember(ctx, userID, c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleLeaveGroup(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	if err := h.groups.LeaveAsMember(ctx, c.Param("id"), userID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleRemoveMember(c echo.Context) error {
	ctx := c.Request().Context()

	requestorID := requester(c)
	if requestorID == "" {
		return presenter.Unauthenticated(c)
	}

	groupID := c.Param("id")
	group, err := h.groups.Get(ctx, groupID)
	if err != nil {
		return presenter.Error(c, err)
	}

	if group.OwnerID != requestorID {
		isAdmin, err := h.roles.IsAdmin(ctx, requestorID)
		if err != nil {
			return presenter.Error(c, err)
		}
		if !isAdmin {
			return presenter.Error(c, domain.UnauthorizedError{Action: "remove members from this group"})
		}
	}

	if err := h.groups.RemoveMember(ctx, groupID, c.Param("userId")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleGroupItems(c echo.Context) error {
	items, err := h.groups.ItemsOfGroup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, items)
}

type createItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
}

func (h *Handler) handleAddItem(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	item, err := h.groups.AddItem(ctx, userID, c.Param("id"), usecase.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, item)
}

func (h *Handler) handleDetachItem(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	if err := h.groups.RemoveItem(ctx, c.Param("itemId"), c.Param("id"), userID); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleSoftDeleteItem(c echo.Context) error {
	ctx := c.Request().Context()

	if requester(c) == "" {
		return presenter.Unauthenticated(c)
	}

	if err := h.groups.SoftDeleteItemFromGroup(ctx, c.Param("itemId"), c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

// --- messages ---

type sendMessageRequest struct {
	ToID string `json:"toId"`
	Body string `json:"body"`
}

func (h *Handler) handleSendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	fromID := requester(c)
	if fromID == "" {
		return presenter.Unauthenticated(c)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	message, err := h.messages.Send(ctx, fromID, req.ToID, req.Body)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, message)
}

func (h *Handler) handleConversation(c echo.Context) error {
	ctx := c.Request().Context()

	userID := requester(c)
	if userID == "" {
		return presenter.Unauthenticated(c)
	}

	messages, err := h.messages.Conversation(ctx, userID, c.Param("userId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, messages)
}

// --- realtime ---

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	// the streamer and the read goroutine both exit via this cancel
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.GroupEvent)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{}, 1)

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Channels:
				case <-ctx.Done():
					return
				}
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
