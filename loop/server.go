package loop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/arloliu/brio/brio"
	"github.com/arloliu/brio/transport"
	"github.com/arloliu/brio/value"
	"github.com/op/go-logging"
)

// Server runs the BRIO instruction loop over a net.Listener: accept,
// authenticate, then service frames until the peer closes (spec.md §4.5).
//
// Grounded on kryptco-kr's ServeKRAgent accept-loop idiom (krd/ssh_agent.go),
// logging through *logging.Logger, but adapted to spec.md §5's scheduling
// rule of single-threaded, one connection at a time: Serve accepts and
// fully services one connection per call rather than forking a goroutine
// per accept. Each connection gets its own Decoder/Encoder pair — §5
// forbids sharing a codec instance across connections — and its own Env.
type Server struct {
	listener      net.Listener
	key           string
	acceptTimeout time.Duration
	evaluator     Evaluator
	log           *logging.Logger
}

// NewServer constructs a Server. acceptTimeout bounds only the initial
// accept call (spec.md §5); once a connection is established, reads may
// block indefinitely until the peer closes.
func NewServer(listener net.Listener, key string, acceptTimeout time.Duration, evaluator Evaluator, log *logging.Logger) *Server {
	return &Server{
		listener:      listener,
		key:           key,
		acceptTimeout: acceptTimeout,
		evaluator:     evaluator,
		log:           log,
	}
}

// Serve implements the Listen state (spec.md §4.5/§5): it waits for
// exactly one connection, bounded by acceptTimeout, then runs that
// connection's Auth/Ready/Done state machine to completion before
// returning. Scheduling is single-threaded, one connection at a time
// (spec.md §5); Serve does not loop to accept a second connection itself
// — callers that want a long-running multi-connection listener call
// Serve repeatedly, each call servicing one connection in turn.
//
// Serve returns nil on a timed-out accept (spec.md's "Timeout →
// terminate" is a normal termination path, not a failure) and after a
// connection that reached Done cleanly. It returns a non-nil error
// wrapping ErrAuthFailed or a decode error when the connection ended
// abnormally, which cmd/brioloopd maps to a nonzero exit code per
// spec.md §6.3.
func (s *Server) Serve(ctx context.Context) error {
	if dl, ok := s.listener.(interface{ SetDeadline(time.Time) error }); ok && s.acceptTimeout > 0 {
		if err := dl.SetDeadline(time.Now().Add(s.acceptTimeout)); err != nil {
			return fmt.Errorf("loop: set accept deadline: %w", err)
		}
	}

	conn, err := s.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			s.log.Info("accept timeout reached, terminating")
			return nil
		}
		return fmt.Errorf("loop: accept: %w", err)
	}

	return s.ServeConn(ctx, conn)
}

// ServeConn runs the Auth/Ready/Done state machine for a single already-
// accepted connection, closing it on return. Exported separately from
// Serve so embedders and tests can drive one connection directly without
// a net.Listener.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	remote := conn.RemoteAddr()

	env, err := s.authenticate(conn)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			s.log.Warning("auth failed from ", remote)
		} else {
			s.log.Error("auth error from ", remote, ": ", err.Error())
		}
		return err
	}
	s.log.Info("authenticated connection from ", remote)

	if err := s.serveReady(ctx, conn, env); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			s.log.Info("connection closed by peer ", remote)
			return nil
		}
		s.log.Error("connection error from ", remote, ": ", err.Error())
		return err
	}
	return nil
}

// authenticate implements the Auth state: decode a dict with a "key"
// string entry, compare against the configured key, and reply with
// {ok: Marker} on success.
func (s *Server) authenticate(conn net.Conn) (Env, error) {
	payload, err := transport.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("loop: read auth frame: %w", err)
	}

	dec := brio.NewDecoder(payload, false)
	authDict, err := dec.ReadDict()
	if err != nil {
		return nil, fmt.Errorf("loop: decode auth dict: %w", err)
	}

	keyVal, ok := authDict.Get("key")
	if !ok || keyVal.Kind() != value.KindStr || keyVal.Str() != s.key {
		return nil, ErrAuthFailed
	}

	ok2 := value.NewDict()
	ok2.Set("ok", value.Marker())
	replyBytes, err := brio.ToBytes(value.FromDict(ok2))
	if err != nil {
		return nil, fmt.Errorf("loop: encode auth reply: %w", err)
	}
	if err := transport.WriteFrame(conn, replyBytes); err != nil {
		return nil, fmt.Errorf("loop: write auth reply: %w", err)
	}

	return make(Env), nil
}

// serveReady implements the Ready state: read frames until end-of-stream,
// each expected to hold a list of instruction dicts, dispatching each in
// order and replying to eval instructions in the same order they arrived.
func (s *Server) serveReady(ctx context.Context, conn net.Conn, env Env) error {
	for {
		payload, err := transport.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return err // Done
			}
			return fmt.Errorf("loop: read instruction frame: %w", err)
		}

		dec := brio.NewDecoder(payload, false)
		batch, err := dec.ReadVal()
		if err != nil {
			return fmt.Errorf("loop: decode instruction list: %w", err)
		}
		if batch.Kind() != value.KindList {
			return fmt.Errorf("loop: %w: expected instruction list, got %s", brio.ErrTypeMismatch, batch.Kind())
		}

		for _, item := range batch.List() {
			if item.Kind() != value.KindDict {
				return fmt.Errorf("loop: %w: instruction entries must be dicts, got %s", brio.ErrTypeMismatch, item.Kind())
			}
			instr, err := parseInstruction(item.Dict())
			if err != nil {
				return err
			}

			env, err = s.dispatch(ctx, conn, instr, env)
			if err != nil {
				return err
			}
		}
	}
}

// dispatch executes one instruction against env, writing an eval reply
// frame if applicable, and returns the environment to carry forward.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, instr instruction, env Env) (Env, error) {
	switch instr.kind {
	case kindDef:
		next := env.Clone()
		next[instr.name] = instr.bound
		return next, nil

	case kindExec:
		next, _, err := s.evaluator.Eval(ctx, instr.source, env)
		if err != nil {
			return env, fmt.Errorf("loop: exec: %w", err)
		}
		return next, nil

	case kindEval:
		next, result, err := s.evaluator.Eval(ctx, instr.source, env)
		if err != nil {
			return env, fmt.Errorf("loop: eval: %w", err)
		}
		reply := value.Null()
		if result != nil {
			reply = *result
		}
		replyBytes, err := brio.ToBytes(reply)
		if err != nil {
			return env, fmt.Errorf("loop: encode eval reply: %w", err)
		}
		if err := transport.WriteFrame(conn, replyBytes); err != nil {
			return env, fmt.Errorf("loop: write eval reply: %w", err)
		}
		return next, nil

	default:
		return env, fmt.Errorf("loop: unknown instruction kind %d", instr.kind)
	}
}
