// Package report is the solver's live diagnostics surface: a
// gorilla/mux router serving the most recent PerformanceIndex and benchmark
// report as JSON/text, plus a single websocket streaming each new
// PerformanceIndex as it is published, grounded on the teacher's
// server.server.go websocket pump (ping/pong keepalive, write-deadline
// discipline, with a channerics ticker driving the pings).
package report

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"msqp/ocp"
)

const (
	writeWait      = 1 * time.Second
	pingResolution = 500 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// BenchmarkReporter is satisfied by sqp.Benchmark without report
// importing package sqp (which would cycle back through assemble/qp/
// etc.); it only needs the rendered text table.
type BenchmarkReporter interface {
	Report() string
}

// Recorder fans a solver's per-iteration PerformanceIndex updates out to
// any number of websocket subscribers, and keeps the latest value and
// benchmark for the plain HTTP endpoints.
type Recorder struct {
	mu        sync.Mutex
	latest    ocp.PerformanceIndex
	benchmark BenchmarkReporter
	subs      []chan ocp.PerformanceIndex
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records index as the latest PerformanceIndex and fans it out
// to every live subscriber. A subscriber whose buffer is full misses
// this update rather than blocking the solver loop; it stays subscribed.
func (r *Recorder) Publish(index ocp.PerformanceIndex) {
	r.mu.Lock()
	r.latest = index
	subs := append([]chan ocp.PerformanceIndex(nil), r.subs...)
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- index:
		default:
		}
	}
}

// PublishBenchmark records the most recent Solve's benchmark report.
func (r *Recorder) PublishBenchmark(b BenchmarkReporter) {
	r.mu.Lock()
	r.benchmark = b
	r.mu.Unlock()
}

// subscribe registers a channel that receives every future Publish call
// until unsubscribe is invoked.
func (r *Recorder) subscribe() chan ocp.PerformanceIndex {
	ch := make(chan ocp.PerformanceIndex, 8)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

func (r *Recorder) unsubscribe(ch chan ocp.PerformanceIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.subs {
		if c == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
}

// Server is the diagnostics HTTP surface: one mux.Router serving /status,
// /benchmark, and the /ws stream.
type Server struct {
	addr     string
	recorder *Recorder
	router   *mux.Router
}

// NewServer builds a Server bound to addr, wired to recorder.
func NewServer(addr string, recorder *Recorder) *Server {
	s := &Server{addr: addr, recorder: recorder, router: mux.NewRouter()}
	s.router.HandleFunc("/status", s.serveStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/benchmark", s.serveBenchmark).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.serveWebsocket).Methods(http.MethodGet)
	return s
}

// Serve blocks, serving the diagnostics router on addr.
func (s *Server) Serve() error {
	if err := http.ListenAndServe(s.addr, s.router); err != nil {
		return fmt.Errorf("report: serve: %w", err)
	}
	return nil
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	s.recorder.mu.Lock()
	latest := s.recorder.latest
	s.recorder.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(latest)
}

func (s *Server) serveBenchmark(w http.ResponseWriter, _ *http.Request) {
	s.recorder.mu.Lock()
	b := s.recorder.benchmark
	s.recorder.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain")
	if b == nil {
		_, _ = w.Write([]byte("no solve has completed yet\n"))
		return
	}
	_, _ = w.Write([]byte(b.Report()))
}

// serveWebsocket streams every PerformanceIndex the solver publishes to
// one connected client, with a ping/pong keepalive in the style of
// server.server.go's publishEleUpdates.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer ws.Close()

	done := make(chan struct{})
	defer close(done)

	updates := s.recorder.subscribe()
	defer s.recorder.unsubscribe(updates)

	pinger := channerics.NewTicker(done, pingResolution)

	for {
		select {
		case <-pinger:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case index := <-updates:
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := ws.WriteJSON(index); err != nil {
				return
			}
		}
	}
}
