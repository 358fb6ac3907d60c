package loop_test

import (
	"context"
	"net"
	"os"
	"testing"

	"github.com/arloliu/brio/brio"
	"github.com/arloliu/brio/loop"
	"github.com/arloliu/brio/transport"
	"github.com/arloliu/brio/value"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log := logging.MustGetLogger("brio-test")
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	logging.SetBackend(backend)
	return log
}

// echoEvaluator returns the source string itself as a Str value on eval,
// and stores it under "_last" in the environment on both exec and eval.
type echoEvaluator struct{}

func (echoEvaluator) Eval(ctx context.Context, source string, env loop.Env) (loop.Env, *value.Value, error) {
	next := env.Clone()
	next["_last"] = value.Str(source)
	result := value.Str(source)
	return next, &result, nil
}

func dictVal(pairs ...any) value.Value {
	d := value.NewDict()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return value.FromDict(d)
}

func writeFrame(t *testing.T, conn net.Conn, v value.Value) {
	t.Helper()
	b, err := brio.ToBytes(v)
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(conn, b))
}

func readFrame(t *testing.T, conn net.Conn) value.Value {
	t.Helper()
	payload, err := transport.ReadFrame(conn)
	require.NoError(t, err)
	dec := brio.NewDecoder(payload, false)
	v, err := dec.ReadVal()
	require.NoError(t, err)
	return v
}

func TestServer_AuthSuccessThenEvalRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	srv := loop.NewServer(nil, "s3cret", 0, echoEvaluator{}, testLogger(t))
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(context.Background(), serverConn)
	}()

	writeFrame(t, clientConn, dictVal("key", value.Str("s3cret")))
	ack := readFrame(t, clientConn)
	require.Equal(t, value.KindDict, ack.Kind())
	okVal, ok := ack.Dict().Get("ok")
	require.True(t, ok)
	require.Equal(t, value.KindMarker, okVal.Kind())

	evalInstr := dictVal("eval", value.Str("1 + 1"))
	writeFrame(t, clientConn, value.FromList([]value.Value{evalInstr}))
	result := readFrame(t, clientConn)
	require.Equal(t, value.KindStr, result.Kind())
	require.Equal(t, "1 + 1", result.Str())

	clientConn.Close()
	<-done
}

func TestServer_AuthFailureClosesConnection(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	srv := loop.NewServer(nil, "s3cret", 0, echoEvaluator{}, testLogger(t))
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(context.Background(), serverConn)
	}()

	writeFrame(t, clientConn, dictVal("key", value.Str("wrong")))

	_, err := transport.ReadFrame(clientConn)
	require.Error(t, err)
	<-done
}

func TestServer_DefBindsWithoutReply(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	srv := loop.NewServer(nil, "s3cret", 0, echoEvaluator{}, testLogger(t))
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(context.Background(), serverConn)
	}()

	writeFrame(t, clientConn, dictVal("key", value.Str("s3cret")))
	readFrame(t, clientConn) // auth ack

	defInstr := dictVal("def", value.Str("x"), "v", value.Number(42, ""))
	evalInstr := dictVal("eval", value.Str("x"))
	writeFrame(t, clientConn, value.FromList([]value.Value{defInstr, evalInstr}))

	// def produces no reply; only the eval instruction's reply arrives.
	result := readFrame(t, clientConn)
	require.Equal(t, "x", result.Str())

	clientConn.Close()
	<-done
}
