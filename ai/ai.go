/*
 * Copyright 2020 Kopano and its licensors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License, version 3,
 * as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package ai

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"

	"stash.kopano.io/kc/itventory/api"
)

// DefaultTimeout is the request timeout used for the AI backend. Answers
// can take long to generate.
const DefaultTimeout = 2 * time.Minute

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a chat thread of a user.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// Message is a single message of a chat thread.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// AskRequest is a question sent to the AI backend. An empty ThreadID starts
// a new thread.
type AskRequest struct {
	Question   string `json:"question"`
	ThreadID   string `json:"threadId,omitempty"`
	ResourceID string `json:"resourceId"`
}

// AskResponse is the answer of the AI backend.
type AskResponse struct {
	Answer     string `json:"answer"`
	ThreadID   string `json:"threadId"`
	ResourceID string `json:"resourceId"`
}

type userParams struct {
	UserID string `url:"userId"`
}

type conversationsResponse struct {
	Conversations []*Conversation `json:"conversations"`
}

type threadMessagesResponse struct {
	Conversations []struct {
		Role      string `json:"role"`
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	} `json:"conversations"`
}

// Client provides access to the AI chat backend.
type Client struct {
	api *api.Client
}

// NewClient creates a Client which sends its requests with the provided
// API client.
func NewClient(c *api.Client) *Client {
	return &Client{
		api: c,
	}
}

func withUser(p string, userID string) (string, error) {
	values, err := query.Values(&userParams{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %v", err)
	}

	return p + "?" + values.Encode(), nil
}

// Conversations returns the chat threads of the provided user.
func (c *Client) Conversations(ctx context.Context, userID string) ([]*Conversation, error) {
	p, err := withUser("/conversations", userID)
	if err != nil {
		return nil, err
	}

	var response conversationsResponse
	if err = c.api.Get(ctx, p, &response); err != nil {
		return nil, err
	}
	if response.Conversations == nil {
		response.Conversations = make([]*Conversation, 0)
	}

	return response.Conversations, nil
}

// ThreadMessages returns the messages of the provided thread in order. Each
// message gets the id <thread>-<index>.
func (c *Client) ThreadMessages(ctx context.Context, threadID string, userID string) ([]*Message, error) {
	p, err := withUser("/thread/"+url.PathEscape(threadID)+"/messages", userID)
	if err != nil {
		return nil, err
	}

	var response threadMessagesResponse
	if err = c.api.Get(ctx, p, &response); err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(response.Conversations))
	for idx, entry := range response.Conversations {
		message := &Message{
			ID:      fmt.Sprintf("%s-%d", threadID, idx),
			Content: entry.Text,
			Role:    entry.Role,
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, entry.CreatedAt); parseErr == nil {
			message.Timestamp = ts
		}
		messages = append(messages, message)
	}

	return messages, nil
}

// Ask sends the provided question to the AI backend.
func (c *Client) Ask(ctx context.Context, r *AskRequest) (*AskResponse, error) {
	if r.Question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	response := &AskResponse{}
	if err := c.api.Post(ctx, "/ask-ai", r, response); err != nil {
		return nil, err
	}

	return response, nil
}
