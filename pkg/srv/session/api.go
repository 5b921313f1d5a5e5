/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/QiangWu769/ltediag/pkg/config"
	"github.com/QiangWu769/ltediag/pkg/log"
)

const (
	ApiPort = 8001
)

type Persist struct {
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

type StatusResponse struct {
	Session     string `json:"session"`
	Stats       Stats  `json:"stats"`
	PendingRows int    `json:"pendingRows"`
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	session *Session
}

func NewApiServer(ctx context.Context, cfg *config.Config, session *Session) (*ApiServer, error) {
	log.Info("Initializing API server: port: %d", ApiPort)
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		session: session,
	}
	return s, nil
}

// Run
func (s *ApiServer) Run() error {
	log.Debug("Starting API server: port: %d", ApiPort)
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, s.Router),
		Addr:    fmt.Sprintf(":%d", ApiPort),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.Handle("/metrics", promhttp.Handler())
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
	subRouter.HandleFunc("/persist", s.handlePersist()).Methods("POST")
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := StatusResponse{
			Session:     s.session.Id,
			Stats:       s.session.Stats(),
			PendingRows: s.session.Aggregator().Pending(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (s *ApiServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		if err := s.session.Aggregator().Flush(); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
}

func (s *ApiServer) handlePersist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persist := &Persist{}
		if err := json.NewDecoder(r.Body).Decode(persist); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling persist request: filePrefix: %s", persist.FilePrefix)

		if err := s.session.Aggregator().Flush(); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		target, err := s.session.Report().Persist(persist.Dir, persist.FilePrefix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"file": target})
	}
}
