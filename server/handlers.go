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

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"stash.kopano.io/kc/itventory/ai"
	"stash.kopano.io/kc/itventory/api"
	"stash.kopano.io/kc/itventory/itventory"
	"stash.kopano.io/kc/itventory/session"
	"stash.kopano.io/kc/itventory/utils"
)

const (
	maxProxyBodySize = 10 * 1024 * 1024
	maxAskBodySize   = 64 * 1024

	staticPrefix = "/static/"
	indexFile    = "index.html"
)

// Relayed request and response headers of the itventory proxy.
var (
	proxyRequestHeaders  = []string{"Content-Type", "Accept-Language"}
	proxyResponseHeaders = []string{"Content-Type", "Content-Disposition", "Location"}
)

// DashboardResponse is the body returned by the DashboardHandler.
type DashboardResponse struct {
	User    *session.Profile   `json:"user"`
	Summary *itventory.Summary `json:"summary"`
}

type askRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"threadId"`
}

// HealthCheckHandler a http handler return 200 OK when server health is fine.
func (s *Server) HealthCheckHandler(rw http.ResponseWriter, req *http.Request) {
	rw.WriteHeader(http.StatusOK)
}

// ProxyHandler relays the request to the business API with the bearer token
// of the current session.
func (s *Server) ProxyHandler(rw http.ResponseWriter, req *http.Request) {
	target := "/" + mux.Vars(req)["path"]
	if req.URL.RawQuery != "" {
		target = target + "?" + req.URL.RawQuery
	}

	var body io.Reader
	if req.Body != nil && req.ContentLength != 0 && req.Method != http.MethodGet {
		body = http.MaxBytesReader(rw, req.Body, maxProxyBodySize)
	}

	outReq, err := s.proxy.NewRequest(req.Context(), req.Method, target, body)
	if err != nil {
		s.logger.WithError(err).Debugln("invalid proxy request")
		utils.WriteErrorJSON(rw, http.StatusBadRequest, &utils.ErrorResponse{
			Message: api.MessageInvalidData,
		})
		return
	}
	for _, name := range proxyRequestHeaders {
		if value := req.Header.Get(name); value != "" {
			outReq.Header.Set(name, value)
		}
	}

	response, err := s.proxy.Do(outReq)
	if response != nil {
		defer response.Body.Close()
	}
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && !apiErr.Unauthorized() && apiErr.StatusCode < http.StatusInternalServerError {
			// Client errors carry validation details, pass them on.
			s.relay(rw, response)
			return
		}
		s.writeAPIError(rw, req, err)
		return
	}

	s.relay(rw, response)
}

func (s *Server) relay(rw http.ResponseWriter, response *http.Response) {
	header := rw.Header()
	for _, name := range proxyResponseHeaders {
		if value := response.Header.Get(name); value != "" {
			header.Set(name, value)
		}
	}
	header.Set("Cache-Control", "no-store")

	rw.WriteHeader(response.StatusCode)
	if _, err := io.Copy(rw, response.Body); err != nil {
		s.logger.WithError(err).Debugln("failed to relay api response")
	}
}

// DashboardHandler returns the profile of the current user together with a
// summary of the inventory.
func (s *Server) DashboardHandler(rw http.ResponseWriter, req *http.Request) {
	current, ok := s.currentSession(rw, req)
	if !ok {
		return
	}

	summary, err := s.dashboard.Summary(req.Context())
	if err != nil {
		s.writeAPIError(rw, req, err)
		return
	}

	s.writeJSON(rw, http.StatusOK, &DashboardResponse{
		User:    current.Profile(),
		Summary: summary,
	})
}

// ConversationsHandler lists the chat threads of the current user.
func (s *Server) ConversationsHandler(rw http.ResponseWriter, req *http.Request) {
	current, ok := s.currentSession(rw, req)
	if !ok {
		return
	}

	conversations, err := s.chat.Conversations(req.Context(), current.ID)
	if err != nil {
		s.writeAPIError(rw, req, err)
		return
	}

	s.writeJSON(rw, http.StatusOK, conversations)
}

// ThreadMessagesHandler lists the messages of a chat thread of the current
// user.
func (s *Server) ThreadMessagesHandler(rw http.ResponseWriter, req *http.Request) {
	current, ok := s.currentSession(rw, req)
	if !ok {
		return
	}

	messages, err := s.chat.ThreadMessages(req.Context(), mux.Vars(req)["id"], current.ID)
	if err != nil {
		s.writeAPIError(rw, req, err)
		return
	}

	s.writeJSON(rw, http.StatusOK, messages)
}

// AskHandler sends a question of the current user to the AI backend. The
// resource id is always the id of the current user.
func (s *Server) AskHandler(rw http.ResponseWriter, req *http.Request) {
	current, ok := s.currentSession(rw, req)
	if !ok {
		return
	}

	var r askRequest
	if err := json.NewDecoder(http.MaxBytesReader(rw, req.Body, maxAskBodySize)).Decode(&r); err != nil {
		utils.WriteErrorJSON(rw, http.StatusBadRequest, &utils.ErrorResponse{
			Message: api.MessageInvalidData,
		})
		return
	}
	if strings.TrimSpace(r.Question) == "" {
		utils.WriteErrorJSON(rw, http.StatusBadRequest, &utils.ErrorResponse{
			Message: "Question is required.",
		})
		return
	}

	answer, err := s.chat.Ask(req.Context(), &ai.AskRequest{
		Question:   r.Question,
		ThreadID:   r.ThreadID,
		ResourceID: current.ID,
	})
	if err != nil {
		s.writeAPIError(rw, req, err)
		return
	}

	s.writeJSON(rw, http.StatusOK, answer)
}

// StaticHandler serves the single page application from the accociated
// Server's static folder. Unknown paths get the index page.
func (s *Server) StaticHandler() http.Handler {
	root := http.Dir(s.staticFolder)
	fileServer := http.FileServer(root)
	index := filepath.Join(s.staticFolder, indexFile)

	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		p := path.Clean("/" + req.URL.Path)
		if p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/") {
			http.NotFound(rw, req)
			return
		}

		if f, err := root.Open(p); err == nil {
			stat, statErr := f.Stat()
			f.Close()
			if statErr == nil && !stat.IsDir() {
				if strings.HasPrefix(p, staticPrefix) {
					rw.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				} else {
					rw.Header().Set("Cache-Control", "no-cache")
				}
				fileServer.ServeHTTP(rw, req)
				return
			}
		}
		if strings.HasPrefix(p, staticPrefix) {
			http.NotFound(rw, req)
			return
		}

		rw.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(rw, req, index)
	})
}

// currentSession returns the session of the provided request or writes a
// 401 response.
func (s *Server) currentSession(rw http.ResponseWriter, req *http.Request) (*session.Session, bool) {
	if ex, ok := session.FromContext(req.Context()); ok {
		if current := ex.Session(); current != nil {
			return current, true
		}
	}

	utils.WriteErrorJSON(rw, http.StatusUnauthorized, &utils.ErrorResponse{
		Error:    "unauthorized",
		Redirect: "/login",
	})
	return nil, false
}

// writeAPIError maps the provided backend error to a JSON error response.
// A navigation requested while handling the error is passed on as redirect.
func (s *Server) writeAPIError(rw http.ResponseWriter, req *http.Request, err error) {
	response := &utils.ErrorResponse{}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		response.Error = "unauthorized"
		response.Redirect = "/login"
		if ex, ok := session.FromContext(req.Context()); ok {
			if target, navigate := ex.NavigateTo(); navigate {
				response.Redirect = target
			}
		}
		s.logger.WithError(err).Debugln("backend rejected session")
		utils.WriteErrorJSON(rw, http.StatusUnauthorized, response)
		return
	}

	message, userErr := api.HandleError(err)
	code := http.StatusBadGateway
	response.Message = message

	var ue *api.UserError
	if errors.As(userErr, &ue) {
		code = ue.StatusCode
		response.Message = ue.Message
		response.Errors = ue.Errors
		if code >= http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
	}

	s.logger.WithFields(utils.ErrorAsFields(err)).Debugln("backend request failed")
	if writeErr := utils.WriteErrorJSON(rw, code, response); writeErr != nil {
		s.logger.WithError(writeErr).Errorln("failed writing error response")
	}
}

func (s *Server) writeJSON(rw http.ResponseWriter, code int, data interface{}) {
	rw.Header().Set("Cache-Control", "no-store")
	if err := utils.WriteJSON(rw, code, data, ""); err != nil {
		s.logger.WithError(err).Errorln("failed writing response")
	}
}
