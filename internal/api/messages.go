package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rentnest/nestchat/internal/types"
)

// SendRequest creates a message. Attachments travel base64-encoded in
// FileData rather than as a separate upload.
type SendRequest struct {
	ClientID        string               `json:"clientId,omitempty"`
	ReceiverID      types.ID             `json:"receiverId"`
	Content         string               `json:"content"`
	Type            types.MessageType    `json:"messageType"`
	ReplyTo         types.ID             `json:"replyTo,omitempty"`
	ReplyToMetadata *types.ReplyMetadata `json:"replyToMetadata,omitempty"`
	FileData        string               `json:"fileData,omitempty"`
	FileMetadata    *types.FileMetadata  `json:"fileMetadata,omitempty"`
	Duration        float64              `json:"duration,omitempty"`

	// Progress, when set, observes the request body as it is sent.
	Progress ProgressFunc `json:"-"`
}

type messageEnvelope struct {
	Message types.Message `json:"message"`
}

type messagesEnvelope struct {
	Messages []types.Message `json:"messages"`
}

type conversationsEnvelope struct {
	Conversations []types.ConversationSummary `json:"conversations"`
}

// ListConversations fetches the conversation summaries of the session user.
func (c *Client) ListConversations(ctx context.Context) ([]types.ConversationSummary, error) {
	var resp conversationsEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/messages/conversations", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetConversation fetches the messages exchanged with otherUserID, oldest first.
func (c *Client) GetConversation(ctx context.Context, otherUserID types.ID) ([]types.Message, error) {
	var resp messagesEnvelope
	path := "/api/messages/conversation/" + url.PathEscape(string(otherUserID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage creates a message and returns the server's canonical record.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (types.Message, error) {
	if req.Type == "" {
		req.Type = types.MessageTypeText
	}
	var resp messageEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/messages/send", nil, req, &resp, req.Progress); err != nil {
		return types.Message{}, err
	}
	return resp.Message, nil
}

// MarkRead marks every message from otherUserID as read.
func (c *Client) MarkRead(ctx context.Context, otherUserID types.ID) error {
	path := "/api/messages/conversation/" + url.PathEscape(string(otherUserID)) + "/read"
	return c.doJSON(ctx, http.MethodPut, path, nil, nil, nil)
}

// EditMessage replaces the content of an own message.
func (c *Client) EditMessage(ctx context.Context, messageID types.ID, content string) (types.Message, error) {
	var resp messageEnvelope
	body := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPut, "/api/messages/"+url.PathEscape(string(messageID)), nil, body, &resp); err != nil {
		return types.Message{}, err
	}
	return resp.Message, nil
}

// DeleteMessage deletes a message for the caller only or for everyone.
func (c *Client) DeleteMessage(ctx context.Context, messageID types.ID, scope types.DeleteScope) error {
	if scope == "" {
		scope = types.DeleteForMe
	}
	query := url.Values{}
	query.Set("scope", string(scope))
	return c.doJSON(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(string(messageID)), query, nil, nil)
}

// DeleteConversation removes a conversation from the caller's list.
func (c *Client) DeleteConversation(ctx context.Context, conversationID types.ID) error {
	path := "/api/messages/conversations/" + url.PathEscape(string(conversationID))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Block blocks userID.
func (c *Client) Block(ctx context.Context, userID types.ID) error {
	return c.doJSON(ctx, http.MethodPost, "/api/users/"+url.PathEscape(string(userID))+"/block", nil, nil, nil)
}

// Unblock removes a block on userID.
func (c *Client) Unblock(ctx context.Context, userID types.ID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(string(userID))+"/block", nil, nil, nil)
}

// GetPresence fetches the online state and last-seen time of userID.
func (c *Client) GetPresence(ctx context.Context, userID types.ID) (types.Presence, error) {
	var resp types.Presence
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(string(userID))+"/presence", nil, nil, &resp); err != nil {
		return types.Presence{}, err
	}
	if resp.UserID == "" {
		resp.UserID = userID
	}
	return resp, nil
}
