package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"net/http/pprof"

	"github.com/segmentio/ksuid"
	"nhooyr.io/websocket"

	"snapsync/network"
	"snapsync/pb"
	"snapsync/snapshot"
	"snapsync/utils"
	"snapsync/world"
)

// SnapshotChannel carries snapshots to clients.
const SnapshotChannel uint32 = 1

type inbound struct {
	session network.Session
	msg     pb.Message
}

type Server struct {
	sessions   map[*network.Conn]struct{}
	mu         sync.RWMutex
	serveMux   http.ServeMux
	inbound    chan inbound
	world      *world.World
	builder    *snapshot.Builder
	dispatcher *network.Dispatcher
	config     utils.ServerConfig
	logger     *slog.Logger
	// tick mirrors the world tick for goroutines outside the loop.
	tick atomic.Int64
}

func NewServer(w *world.World, config utils.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sessions:   make(map[*network.Conn]struct{}),
		inbound:    make(chan inbound, 1024),
		world:      w,
		builder:    snapshot.NewBuilder(w, logger),
		dispatcher: network.NewDispatcher(logger),
		config:     config,
		logger:     logger,
	}
	network.Handle(s.dispatcher, s.onRequestEntitySpawn)

	s.serveMux.HandleFunc("/", s.onConnection)
	s.serveMux.HandleFunc("/debug/pprof/", pprof.Index)
	s.serveMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.serveMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.serveMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.serveMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return s
}

func (s *Server) Dispatcher() *network.Dispatcher {
	return s.dispatcher
}

// Loop runs the simulation until ctx is done. It owns the world: nothing else
// may touch it while Loop runs.
func (s *Server) Loop(ctx context.Context) {
	interval := s.config.TickInterval()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			s.onTick(interval)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) onTick(dt time.Duration) {
	for len(s.inbound) > 0 {
		select {
		case in := <-s.inbound:
			s.dispatcher.Dispatch(in.session, in.msg)
		default:
		}
	}

	s.world.Step(dt)
	s.tick.Store(s.world.Tick())
	if snap, ok := s.builder.Build(s.world.Tick()); ok {
		s.publish(snap.ToProto())
	}
}

func (s *Server) onRequestEntitySpawn(session network.Session, msg *pb.RequestEntitySpawn) error {
	entry, ok := s.world.Entity(msg.EntityId)
	if !ok || !snapshot.IsClientRelevant(entry) {
		s.logger.Debug("spawn request for unknown entity", "entity", msg.EntityId, "session", session.ID())
		return nil
	}
	state := snapshot.BuildEntity(entry)
	return session.Send(SnapshotChannel, &pb.EntitySpawn{State: state.ToProto()}, true)
}

func (s *Server) addSession(conn *network.Conn) {
	s.mu.Lock()
	s.sessions[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeSession(conn *network.Conn) {
	s.mu.Lock()
	delete(s.sessions, conn)
	s.mu.Unlock()
}

func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serveMux.ServeHTTP(w, r)
}

func (s *Server) onConnection(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.config.OriginPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	conn := network.NewConn(ksuid.New().String(), c, 1024, s.logger)
	if err := s.handleConnection(r.Context(), conn); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Info("session closed", "session", conn.ID(), "err", err)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn *network.Conn) error {
	s.addSession(conn)
	defer s.removeSession(conn)
	s.logger.Info("session connected", "session", conn.ID())

	if err := conn.Send(0, &pb.ConnectAck{SessionId: conn.ID(), ServerTick: s.tick.Load()}, true); err != nil {
		return err
	}
	return conn.Run(ctx, func(msg pb.Message) {
		select {
		case s.inbound <- inbound{session: conn, msg: msg}:
		default:
			s.logger.Warn("inbound queue full, dropping message", "session", conn.ID(), "kind", msg.Kind())
		}
	})
}

// publish sends a snapshot to every session. Snapshots are unreliable: a full
// outbound queue drops them and the next tick supersedes them.
func (s *Server) publish(snap *pb.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.sessions {
		if err := conn.Send(SnapshotChannel, snap, false); err != nil {
			s.logger.Debug("snapshot not sent", "session", conn.ID(), "err", err)
		}
	}
}

// Run serves the world described by the config at path until interrupted.
func Run(configPath string) error {
	log.SetFlags(log.LstdFlags | log.Llongfile)
	cfg, err := utils.ReadTOMLOrDefault(configPath)
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Log)

	w, err := loadWorld(cfg.Server.Level)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return err
	}
	logger.Info("listening", "address", "http://"+l.Addr().String(), "entities", w.Len())
	server := NewServer(w, cfg.Server, logger)
	s := &http.Server{
		Handler:      server,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Loop(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Error("serve failed", "err", err)
	case sig := <-sigs:
		logger.Info("terminating", "signal", sig)
	}

	cancel()
	return s.Shutdown(context.Background())
}

// loadWorld populates a world from the level layout at path, or from the
// built-in layout when path is empty.
func loadWorld(path string) (*world.World, error) {
	level, err := world.ReadLevel(path)
	if err != nil {
		return nil, err
	}
	w := world.NewWorld()
	level.Populate(w)
	return w, nil
}
