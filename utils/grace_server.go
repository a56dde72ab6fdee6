package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second

	gracefulEnvKey     = "LINKFEED_GRACEFUL"
	gracefulEnvValue   = gracefulEnvKey + "=1"
	gracefulListenerFD = 3
)

// Server wraps http.Server with signal handling. SIGTERM and SIGINT drain
// in-flight requests and stop; SIGUSR2 hands the listener to a fresh process
// and then drains this one.
type Server struct {
	*http.Server

	listener      net.Listener
	inherit       bool
	signals       chan os.Signal
	done          chan struct{}
	shutdownHooks []func(ctx context.Context)
}

// NewServer creates a Server with the default timeouts.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		inherit: os.Getenv(gracefulEnvKey) != "",
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers fn to run after the HTTP server has drained.
func (srv *Server) OnShutdown(fn func(ctx context.Context)) {
	srv.shutdownHooks = append(srv.shutdownHooks, fn)
}

// ListenAndServe blocks until the server has been shut down by a signal.
func (srv *Server) ListenAndServe() error {
	ln, err := srv.listen()
	if err != nil {
		return err
	}
	srv.listener = ln

	signal.Notify(srv.signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
	defer signal.Stop(srv.signals)
	go srv.handleSignals()

	err = srv.Serve(ln)
	<-srv.done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (srv *Server) listen() (net.Listener, error) {
	if srv.inherit {
		ln, err := net.FileListener(os.NewFile(gracefulListenerFD, "listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	for sig := range srv.signals {
		switch sig {
		case syscall.SIGUSR2:
			pid, err := srv.fork()
			if err != nil {
				Sugar.Errorf("graceful restart failed, still serving: %v", err)
				continue
			}
			Sugar.Infof("graceful restart: new process pid=%d, draining old server", pid)
		default:
			Sugar.Infof("received %s, shutting down", sig)
		}
		srv.shutdown()
		return
	}
}

func (srv *Server) shutdown() {
	defer close(srv.done)
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("http shutdown: %v", err)
	}
	for _, hook := range srv.shutdownHooks {
		hook(ctx)
	}
	Sugar.Info("server stopped")
}

// fork starts a copy of this binary that inherits the listening socket as fd 3.
func (srv *Server) fork() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, errors.New("listener is not a TCP listener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer file.Close()

	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if e != gracefulEnvValue {
			env = append(env, e)
		}
	}
	env = append(env, gracefulEnvValue)

	return syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
}
