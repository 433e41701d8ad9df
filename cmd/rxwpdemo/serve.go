package main

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/RxAI-dev/rxwp/arraymap"
	"github.com/RxAI-dev/rxwp/asynx"
	"github.com/RxAI-dev/rxwp/reactive"
	"github.com/RxAI-dev/rxwp/reconcile"
)

var reconcileOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rxwp",
	Subsystem: "reconcile",
	Name:      "ops_total",
	Help:      "Primitive sink mutations issued by the reconciler, by op kind.",
}, []string{"kind"})

func newServeCmd() *cobra.Command {
	var addr string
	var interval int64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live-patch demo and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := chi.NewRouter()
			r.Use(middleware.Recoverer)
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				fmt.Fprintln(w, "rxwpdemo: connect a websocket client to /ws, scrape /metrics")
			})
			r.Handle("/metrics", promhttp.Handler())
			r.Get("/ws", wsHandler(interval))

			log.Printf("rxwpdemo listening on %s", addr)
			return http.ListenAndServe(addr, r)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address")
	cmd.Flags().Int64Var(&interval, "interval", 500, "milliseconds between demo list shuffles")
	return cmd
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// patchFrame is one websocket message: the op sequence the reconciler issued for a
// single list update plus the resulting child order, so a thin client can
// either replay the ops or assert against the final state.
type patchFrame struct {
	Tick     int      `json:"tick"`
	Ops      []wireOp `json:"ops"`
	Children []string `json:"children"`
}

type wireOp struct {
	Kind string `json:"kind"`
}

// wsHandler runs one independent reactive graph per connection (its own
// AppRoot and scheduler), shuffling a row list on a timer and streaming
// each reconcile pass's patch batch to the client until the socket drops.
func wsHandler(intervalMS int64) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		closed := make(chan struct{})
		go func() {
			// Drain (and ignore) client frames; a read error means the
			// peer went away.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					close(closed)
					return
				}
			}
		}()

		reactive.AppRoot(func(dispose func()) {
			defer dispose()

			clock := asynx.NewRealClock()
			engine := asynx.New(clock, reactive.CurrentScheduler(), func(err error) {
				log.Printf("ws session pipeline error: %v", err)
			})

			ids := []int{1, 2, 3, 4, 5, 6}
			list := reactive.MakeSignal(append([]int(nil), ids...), nil)

			rows := arraymap.MapArray(list.Read, func(id int, _ func() int) *listNode {
				return &listNode{name: fmt.Sprintf("row-%d", id)}
			})

			parent := &listParent{}
			var current []reconcile.Node
			tick := 0
			writeErr := make(chan struct{})

			reactive.MakeRenderEffect(func() {
				next := make([]reconcile.Node, 0, len(ids))
				for _, n := range rows() {
					next = append(next, n)
				}
				rec := &promRecorder{}
				reconcile.ReconcileRecording(parent, &current, next, rec)
				tick++
				frame := patchFrame{Tick: tick, Ops: rec.ops, Children: parent.names()}
				if err := conn.WriteJSON(frame); err != nil {
					select {
					case <-writeErr:
					default:
						close(writeErr)
					}
				}
			})

			var reschedule func()
			reschedule = func() {
				asynx.Schedule(engine, asynx.Delay[int](intervalMS), []asynx.Action[int]{
					asynx.Do(func(v int) int {
						shuffled := append([]int(nil), ids...)
						rand.Shuffle(len(shuffled), func(i, j int) {
							shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
						})
						list.Write(shuffled)
						reschedule()
						return v
					}),
				}, 0)
			}
			reschedule()

			select {
			case <-closed:
			case <-writeErr:
			}
		})
	}
}

// promRecorder forwards every reconciler primitive both to the Prometheus
// counter vector and to the frame being assembled for the client.
type promRecorder struct {
	ops []wireOp
}

func (r *promRecorder) OnOp(kind string) {
	reconcileOps.WithLabelValues(kind).Inc()
	r.ops = append(r.ops, wireOp{Kind: kind})
}

// listNode and listParent are the demo's synthetic node sink: a child
// slice kept in sync with each node's next pointer, the bookkeeping a
// real DOM element does internally.
type listNode struct {
	name string
	next *listNode
}

func (n *listNode) NextSibling() reconcile.Node {
	if n.next == nil {
		return nil
	}
	return n.next
}

type listParent struct {
	children []*listNode
}

func (p *listParent) relink() {
	for i, c := range p.children {
		if i+1 < len(p.children) {
			c.next = p.children[i+1]
		} else {
			c.next = nil
		}
	}
}

func (p *listParent) indexOf(n *listNode) int {
	for i, c := range p.children {
		if c == n {
			return i
		}
	}
	return -1
}

func (p *listParent) InsertBefore(child, ref reconcile.Node) {
	c := child.(*listNode)
	if i := p.indexOf(c); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	if ref == nil {
		p.children = append(p.children, c)
		p.relink()
		return
	}
	r := ref.(*listNode)
	i := p.indexOf(r)
	p.children = append(p.children, nil)
	copy(p.children[i+1:], p.children[i:])
	p.children[i] = c
	p.relink()
}

func (p *listParent) RemoveChild(child reconcile.Node) {
	c := child.(*listNode)
	if i := p.indexOf(c); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	p.relink()
}

func (p *listParent) ReplaceChild(newChild, oldChild reconcile.Node) {
	nc, oc := newChild.(*listNode), oldChild.(*listNode)
	if i := p.indexOf(oc); i >= 0 {
		p.children[i] = nc
	}
	p.relink()
}

func (p *listParent) names() []string {
	out := make([]string, len(p.children))
	for i, c := range p.children {
		out[i] = c.name
	}
	return out
}
