// Package grpcservice implements the HistoryService gRPC server.
package grpcservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/history"
	"go.klb.dev/cliphist/internal/hub"
)

// SourceHeader is the metadata key clients use to name themselves.
const SourceHeader = "x-cliphist-source"

// Service implements api.HistoryServer.
type Service struct {
	h     *hub.Hub
	token string // empty = no auth
	info  api.DaemonInfo
}

// New returns a Service backed by h. token may be empty to disable auth.
func New(h *hub.Hub, token string, info api.DaemonInfo) *Service {
	return &Service{h: h, token: token, info: info}
}

// Add implements HistoryService.Add.
func (s *Service) Add(ctx context.Context, req *api.AddRequest) (*api.AddResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if req.MIME == "" {
		return nil, status.Error(codes.InvalidArgument, "mime type is required")
	}
	src := sourceFromCtx(ctx)
	md := req.Metadata
	if _, ok := md[history.MetaSource]; !ok {
		md = make(map[string]string, len(req.Metadata)+1)
		for k, v := range req.Metadata {
			md[k] = v
		}
		md[history.MetaSource] = src
	}
	added := s.h.Add(history.NewEntry(req.Data, req.MIME, md), src)
	return &api.AddResponse{Added: added, Count: s.h.Count()}, nil
}

// Remove implements HistoryService.Remove. An out-of-range index is not an
// error; the response reports Removed=false.
func (s *Service) Remove(ctx context.Context, req *api.RemoveRequest) (*api.RemoveResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	_, removed := s.h.Remove(req.Index, sourceFromCtx(ctx))
	return &api.RemoveResponse{Removed: removed, Count: s.h.Count()}, nil
}

// Get implements HistoryService.Get.
func (s *Service) Get(ctx context.Context, req *api.GetRequest) (*api.GetResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	e, err := s.h.At(req.Index)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetResponse{Entry: api.FromHistory(req.Index, e, true)}, nil
}

// List implements HistoryService.List.
func (s *Service) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	entries := s.h.Entries()
	out := make([]api.Entry, len(entries))
	for i, e := range entries {
		out[i] = api.FromHistory(i, e, req.WithData)
	}
	return &api.ListResponse{Entries: out, Count: len(out), Limit: s.h.Limit()}, nil
}

// Activate implements HistoryService.Activate.
func (s *Service) Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	e, err := s.h.Activate(req.Index, sourceFromCtx(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ActivateResponse{Entry: api.FromHistory(req.Index, e, false)}, nil
}

// Status implements HistoryService.Status.
func (s *Service) Status(ctx context.Context, _ *api.StatusRequest) (*api.StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return &api.StatusResponse{
		DaemonInfo: s.info,
		Count:      s.h.Count(),
		Limit:      s.h.Limit(),
		Watchers:   s.h.Watchers(),
	}, nil
}

// Watch implements HistoryService.Watch.
func (s *Service) Watch(req *api.WatchRequest, stream api.WatchServer) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}

	wp := &watchPeer{
		id: sourceFromCtx(ctx) + "/watch/" + uuid.New().String(),
		ch: make(chan hub.Event, 16),
	}
	s.h.Register(wp)
	defer s.h.Unregister(wp)

	slog.Info("watch started", "watcher", wp.id, "with_data", req.WithData)
	defer slog.Info("watch ended", "watcher", wp.id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-wp.ch:
			if err := stream.Send(ToWatchEvent(ev, req.WithData)); err != nil {
				return err
			}
		}
	}
}

// ToWatchEvent converts a hub event for the wire. Trim events carry no entry.
func ToWatchEvent(ev hub.Event, withData bool) *api.WatchEvent {
	out := &api.WatchEvent{
		Kind:   string(ev.Kind),
		Index:  ev.Index,
		Origin: ev.Origin,
		Count:  ev.Count,
	}
	if ev.Kind != hub.KindTrimmed {
		e := api.FromHistory(ev.Index, ev.Entry, withData)
		out.Entry = &e
	}
	return out
}

// toStatus maps hub errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, history.ErrOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, hub.ErrNoActivator):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	if strings.TrimPrefix(vals[0], "Bearer ") != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func sourceFromCtx(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(SourceHeader); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return addrFromCtx(ctx)
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// watchPeer is a transient hub.Watcher backed by a Watch stream.
type watchPeer struct {
	id string
	ch chan hub.Event
}

func (p *watchPeer) ID() string { return p.id }

func (p *watchPeer) Send(ev hub.Event) {
	select {
	case p.ch <- ev:
	default:
		slog.Warn("watch channel full, dropping", "watcher", p.id, "kind", ev.Kind)
	}
}
