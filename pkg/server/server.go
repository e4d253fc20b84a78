// Package server hosts a local preview of the benchmark dashboard: the data
// file, the landing page and a small JSON API over the recorded history.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/benchwatch/benchwatch/pkg/history"
	"github.com/benchwatch/benchwatch/pkg/logging"
	"github.com/benchwatch/benchwatch/pkg/persist"
)

// Server serves the data directory produced by the persistence layer.
type Server struct {
	*http.Server

	dir      string
	dataFile string
	cache    *lru.Cache // mtime -> *history.Store
}

// New creates a preview server for the data directory at dir. The following
// handlers are attached:
//   - GET /                        the landing page (dir's own, or the default)
//   - GET /data.js                 the raw data file
//   - GET /api/suites              suite names in the store
//   - GET /api/suites/{suite}      the runs recorded for one suite
func New(listenAddr, dir string) (*Server, error) {
	cache, err := lru.New(8)
	if err != nil {
		return nil, err
	}
	srv := &Server{
		dir:      dir,
		dataFile: filepath.Join(dir, "data.js"),
		cache:    cache,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", loggingHandler(srv.indexHandler)).Methods("GET")
	r.HandleFunc("/data.js", loggingHandler(srv.dataHandler)).Methods("GET")
	r.HandleFunc("/api/suites", loggingHandler(srv.suitesHandler)).Methods("GET")
	r.HandleFunc("/api/suites/{suite}", loggingHandler(srv.suiteHandler)).Methods("GET")

	srv.Server = &http.Server{
		Handler:      r,
		Addr:         listenAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv, nil
}

func loggingHandler(f func(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.S().With("ruid", xid.New().String())
		log.Debugw("request", "method", r.Method, "path", r.URL.Path)
		f(w, r, log)
	}
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request, _ *zap.SugaredLogger) {
	page := filepath.Join(s.dir, "index.html")
	if _, err := os.Stat(page); err == nil {
		http.ServeFile(w, r, page)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(persist.DefaultIndexHTML)
}

func (s *Server) dataHandler(w http.ResponseWriter, r *http.Request, _ *zap.SugaredLogger) {
	http.ServeFile(w, r, s.dataFile)
}

func (s *Server) suitesHandler(w http.ResponseWriter, _ *http.Request, log *zap.SugaredLogger) {
	store := s.load(log)
	names := store.Suites()
	sort.Strings(names)
	writeJSON(w, names, log)
}

func (s *Server) suiteHandler(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger) {
	suite := mux.Vars(r)["suite"]
	store := s.load(log)
	runs, ok := store.Entries[suite]
	if !ok {
		http.Error(w, "unknown suite", http.StatusNotFound)
		return
	}
	writeJSON(w, runs, log)
}

// load parses the data file, reusing a cached parse while the file's mtime
// is unchanged.
func (s *Server) load(log *zap.SugaredLogger) *history.Store {
	fi, err := os.Stat(s.dataFile)
	if err != nil {
		return history.Empty()
	}
	key := fi.ModTime().UnixNano()
	if v, ok := s.cache.Get(key); ok {
		return v.(*history.Store)
	}
	store := history.Load(s.dataFile)
	s.cache.Add(key, store)
	log.Debugw("data file parsed", "suites", len(store.Entries))
	return store
}

func writeJSON(w http.ResponseWriter, v interface{}, log *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorw("unable to encode response", "err", err)
	}
}
