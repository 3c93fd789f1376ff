package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/api/metrics"
	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// ChatHandler serves the owner/customer conversation routes.
type ChatHandler struct {
	chat ports.ChatService
}

func NewChatHandler(chat ports.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type startConversationRequest struct {
	OwnerID    string `json:"ownerId"`
	CustomerID string `json:"customerId"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Text           string `json:"text"           validate:"required"`
}

// StartConversation finds or creates the conversation between an owner and a customer.
//
// @Summary      Start a conversation
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      startConversationRequest  true  "Participants"
// @Success      200   {object}  domain.Conversation
// @Failure      400   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Router       /conversation [post]
func (h *ChatHandler) StartConversation(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var req startConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	conv, err := h.chat.StartConversation(c.Request().Context(), caller, req.OwnerID, req.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conv)
}

// ListConversations returns the caller's conversations, newest activity first.
//
// @Summary      List conversations
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        ownerId  query     string  false  "Owner account id"
// @Success      200      {array}   domain.Conversation
// @Failure      403      {object}  messageResponse
// @Router       /conversations [get]
func (h *ChatHandler) ListConversations(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	convs, err := h.chat.ListConversations(c.Request().Context(), caller, c.QueryParam("ownerId"))
	if err != nil {
		return err
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	return c.JSON(http.StatusOK, convs)
}

// ListMessages returns a conversation's messages in the order they were sent.
//
// @Summary      List messages
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        conversationId  path      string  true  "Conversation id"
// @Success      200             {array}   domain.Message
// @Failure      403             {object}  messageResponse
// @Failure      404             {object}  messageResponse
// @Router       /messages/{conversationId} [get]
func (h *ChatHandler) ListMessages(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	msgs, err := h.chat.ListMessages(c.Request().Context(), caller, c.Param("conversationId"))
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

// SendMessage posts a message to a conversation the caller takes part in.
//
// @Summary      Send a message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sendMessageRequest  true  "Message"
// @Success      201   {object}  domain.Message
// @Failure      400   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /messages [post]
func (h *ChatHandler) SendMessage(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.chat.SendMessage(c.Request().Context(), caller, req.ConversationID, req.Text)
	if err != nil {
		return err
	}
	metrics.MessagesSentTotal.Inc()
	return c.JSON(http.StatusCreated, msg)
}
