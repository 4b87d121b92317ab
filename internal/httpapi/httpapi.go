// Package httpapi exposes the history service as a small HTTP/JSON API.
//
// Every handler translates the request into a call on an api.HistoryServer,
// carrying the Authorization header and client identity as incoming gRPC
// metadata, so HTTP and gRPC clients share auth and error semantics.
//
//	GET    /v1/history                  list (?data=1 includes payloads)
//	GET    /v1/history/{index}          raw payload, Content-Type = entry MIME
//	POST   /v1/history                  body = payload, Content-Type = MIME
//	DELETE /v1/history/{index}          remove
//	POST   /v1/history/{index}/activate copy back to the clipboard
//	GET    /v1/status                   daemon status
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/grpcservice"
)

// MaxPayload bounds the body of POST /v1/history.
const MaxPayload = 64 << 20

// SourceHeader lets HTTP clients name themselves.
const SourceHeader = "X-Cliphist-Source"

// Server routes HTTP requests to a HistoryServer.
type Server struct {
	srv api.HistoryServer
	mux *http.ServeMux
}

// New returns a Server backed by srv.
func New(srv api.HistoryServer) *Server {
	s := &Server{srv: srv, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/history", s.list)
	s.mux.HandleFunc("POST /v1/history", s.add)
	s.mux.HandleFunc("GET /v1/history/{index}", s.get)
	s.mux.HandleFunc("DELETE /v1/history/{index}", s.remove)
	s.mux.HandleFunc("POST /v1/history/{index}/activate", s.activate)
	s.mux.HandleFunc("GET /v1/status", s.status)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	withData, _ := strconv.ParseBool(r.URL.Query().Get("data"))
	resp, err := s.srv.List(incoming(r), &api.ListRequest{WithData: withData})
	reply(w, resp, err)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayload))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	mt := "application/octet-stream"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("content type: %v", err))
			return
		}
		mt = parsed
	}

	resp, err := s.srv.Add(incoming(r), &api.AddRequest{Data: data, MIME: mt})
	if err == nil && resp.Added {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	reply(w, resp, err)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	i, ok := index(w, r)
	if !ok {
		return
	}
	resp, err := s.srv.Get(incoming(r), &api.GetRequest{Index: i})
	if err != nil {
		reply(w, nil, err)
		return
	}
	w.Header().Set("Content-Type", resp.Entry.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Entry.Data)))
	if !resp.Entry.Time.IsZero() {
		w.Header().Set("Last-Modified", resp.Entry.Time.UTC().Format(http.TimeFormat))
	}
	_, _ = w.Write(resp.Entry.Data)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	i, ok := index(w, r)
	if !ok {
		return
	}
	resp, err := s.srv.Remove(incoming(r), &api.RemoveRequest{Index: i})
	reply(w, resp, err)
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	i, ok := index(w, r)
	if !ok {
		return
	}
	resp, err := s.srv.Activate(incoming(r), &api.ActivateRequest{Index: i})
	reply(w, resp, err)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp, err := s.srv.Status(incoming(r), &api.StatusRequest{})
	reply(w, resp, err)
}

// incoming turns the HTTP request into a context carrying the same metadata
// a gRPC client would send.
func incoming(r *http.Request) context.Context {
	src := r.Header.Get(SourceHeader)
	if src == "" {
		src = r.RemoteAddr
	}
	md := metadata.Pairs(grpcservice.SourceHeader, src)
	if auth := r.Header.Get("Authorization"); auth != "" {
		md.Set("authorization", auth)
	}
	return metadata.NewIncomingContext(r.Context(), md)
}

func index(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid index %q", r.PathValue("index")))
		return 0, false
	}
	return i, true
}

func reply(w http.ResponseWriter, resp any, err error) {
	if err != nil {
		st := status.Convert(err)
		writeError(w, httpStatus(st.Code()), st.Message())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Debug("http response write failed", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// httpStatus maps a gRPC code to the HTTP status a gateway would use.
func httpStatus(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
