// Command remoteobj-demo exercises the ObjectStore over a real
// github.com/gorilla/websocket socket: `serve` exposes a small counter
// object, `dial` connects, requests it, and drives its methods. Flag
// parsing follows cmd/agently/cli.go's github.com/jessevdk/go-flags,
// sub-command-as-pointer-field idiom.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jessevdk/go-flags"

	"github.com/viant/remoteobj/internal/objectstore/store"
	"github.com/viant/remoteobj/internal/objectstore/transport/ws"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Options is the root command; Init instantiates the sub-command selected
// by the first CLI argument.
type Options struct {
	Serve *ServeCmd `command:"serve" description:"expose a demo object over a websocket"`
	Dial  *DialCmd  `command:"dial" description:"connect to a serve instance and drive the demo object"`
}

func (o *Options) Init(firstArg string) {
	switch firstArg {
	case "serve":
		o.Serve = &ServeCmd{Addr: ":8089"}
	case "dial":
		o.Dial = &DialCmd{Addr: "ws://localhost:8089/objectstore"}
	}
}

// ServeCmd starts the listening side.
type ServeCmd struct {
	Addr string `short:"a" long:"addr" description:"listen address"`
}

// DialCmd starts the connecting side.
type DialCmd struct {
	Addr string `short:"a" long:"addr" description:"websocket URL to dial"`
}

func main() {
	opts := &Options{}
	var first string
	if len(os.Args) > 1 {
		first = os.Args[1]
	}
	opts.Init(first)

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

	switch {
	case opts.Serve != nil:
		runServe(opts.Serve)
	case opts.Dial != nil:
		runDial(opts.Dial)
	default:
		log.Fatal("expected a command: serve or dial")
	}
}

// counter is the demo object exposed by `serve`: a plain Go struct whose
// exported fields and methods the peer reaches through get/set/call paths.
type counter struct {
	Value int
}

func (c *counter) Increment(by float64) int {
	c.Value += int(by)
	return c.Value
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func runServe(cmd *ServeCmd) {
	mux := http.NewServeMux()
	mux.HandleFunc("/objectstore", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		wsConn := ws.New(conn, disconnectLogger{})
		s, err := store.New(wire.Local, wsConn)
		if err != nil {
			log.Printf("store init failed: %v", err)
			return
		}
		wsConn.SetHandler(s)
		if err := s.Expose("counter", &counter{}); err != nil {
			log.Printf("expose failed: %v", err)
			return
		}
		log.Println("peer connected, exposing \"counter\"")
	})
	log.Printf("listening on %s", cmd.Addr)
	log.Fatal(http.ListenAndServe(cmd.Addr, mux))
}

func runDial(cmd *DialCmd) {
	conn, _, err := websocket.DefaultDialer.Dial(cmd.Addr, nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	wsConn := ws.New(conn, disconnectLogger{})
	s, err := store.New(wire.Remote, wsConn)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	wsConn.SetHandler(s)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	remote, err := s.Request(ctx, "counter")
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}

	result, err := remote.Get("Increment").Call(float64(5)).Await(ctx)
	if err != nil {
		log.Fatalf("call failed: %v", err)
	}
	fmt.Printf("counter.Increment(5) -> %v\n", result)
}

type disconnectLogger struct{}

func (disconnectLogger) OnDisconnect(err error) {
	if err != nil {
		log.Printf("peer disconnected: %v", err)
	}
}
