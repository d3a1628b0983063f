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
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"

	"stash.kopano.io/kc/itventory/api"
)

var logger = &logrus.Logger{
	Out:       ioutil.Discard,
	Formatter: &logrus.TextFormatter{DisableColors: true},
	Level:     logrus.DebugLevel,
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	backend := httptest.NewServer(handler)

	baseURI, _ := url.Parse(backend.URL)
	client, err := api.New(&api.Config{
		Name:    "ai",
		BaseURI: baseURI,
		Timeout: DefaultTimeout,
		Logger:  logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	return NewClient(client), backend.Close
}

func TestConversations(t *testing.T) {
	c, done := newTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/conversations" || req.URL.Query().Get("userId") != "u 1" {
			t.Errorf("unexpected request %s", req.URL.RequestURI())
		}
		rw.Write([]byte(`{"conversations":[{"id":"t1","title":"Laptops","createdAt":"2024-05-01T10:00:00Z"}]}`))
	})
	defer done()

	conversations, err := c.Conversations(context.Background(), "u 1")
	if err != nil {
		t.Fatal(err)
	}
	if len(conversations) != 1 || conversations[0].Title != "Laptops" {
		t.Errorf("unexpected conversations: %+v", conversations)
	}
}

func TestThreadMessages(t *testing.T) {
	c, done := newTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/thread/t1/messages" || req.URL.Query().Get("userId") != "u1" {
			t.Errorf("unexpected request %s", req.URL.RequestURI())
		}
		rw.Write([]byte(`{"conversations":[
			{"role":"user","text":"How many laptops?","createdAt":"2024-05-01T10:00:00Z"},
			{"role":"assistant","text":"42","createdAt":"2024-05-01T10:00:05.5Z"},
			{"role":"assistant","text":"?","createdAt":"garbage"}
		]}`))
	})
	defer done()

	messages, err := c.ThreadMessages(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for idx, id := range []string{"t1-0", "t1-1", "t1-2"} {
		if messages[idx].ID != id {
			t.Errorf("expected id %s, got %s", id, messages[idx].ID)
		}
	}
	if messages[1].Role != RoleAssistant || messages[1].Content != "42" || messages[1].Timestamp.IsZero() {
		t.Errorf("unexpected message: %+v", messages[1])
	}
	if !messages[2].Timestamp.IsZero() {
		t.Error("expected zero timestamp for invalid value")
	}
}

func TestAsk(t *testing.T) {
	var bodies []map[string]interface{}
	c, done := newTestClient(t, func(rw http.ResponseWriter, req *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(req.Body).Decode(&body)
		bodies = append(bodies, body)
		rw.Write([]byte(`{"answer":"42","threadId":"t9","resourceId":"u1"}`))
	})
	defer done()

	ctx := context.Background()
	response, err := c.Ask(ctx, &AskRequest{Question: "How many?", ResourceID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if response.Answer != "42" || response.ThreadID != "t9" {
		t.Errorf("unexpected response: %+v", response)
	}
	if _, err = c.Ask(ctx, &AskRequest{Question: "And now?", ThreadID: "t9", ResourceID: "u1"}); err != nil {
		t.Fatal(err)
	}

	if _, ok := bodies[0]["threadId"]; ok {
		t.Error("expected threadId to be omitted for new threads")
	}
	if bodies[1]["threadId"] != "t9" {
		t.Errorf("expected threadId to be sent, got %v", bodies[1])
	}

	if _, err = c.Ask(ctx, &AskRequest{ResourceID: "u1"}); err == nil {
		t.Error("expected error for empty question")
	}
}
