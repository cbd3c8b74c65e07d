package wsgate

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var TestMsg = []byte("test")

type event struct {
	name  string
	state State
	msg   Message
	code  int
}

// recordingConsumer forwards every hook call on events.
type recordingConsumer struct {
	events    chan event
	connect   func(*Session) error
	receive   func(*Session, Message) error
	inReceive sync.Mutex
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{events: make(chan event, 64)}
}

func (c *recordingConsumer) OnConnect(s *Session) error {
	c.events <- event{name: "connect", state: s.State()}
	if c.connect != nil {
		return c.connect(s)
	}
	return nil
}

func (c *recordingConsumer) OnReceive(s *Session, msg Message) error {
	if !c.inReceive.TryLock() {
		panic("OnReceive called concurrently")
	}
	defer c.inReceive.Unlock()

	c.events <- event{name: "receive", state: s.State(), msg: msg}
	if c.receive != nil {
		return c.receive(s, msg)
	}
	return nil
}

func (c *recordingConsumer) OnDisconnect(s *Session, code int) {
	c.events <- event{name: "disconnect", state: s.State(), code: code}
}

func (c *recordingConsumer) next(t *testing.T) event {
	t.Helper()
	select {
	case e := <-c.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer event")
		return event{}
	}
}

type TestServer struct {
	g        *Gateway
	consumer *recordingConsumer
}

func NewTestServer() *TestServer {
	return &TestServer{
		g:        New(),
		consumer: newRecordingConsumer(),
	}
}

func (s *TestServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = s.g.HandleRequest(w, r, func() Consumer { return s.consumer })
}

func NewDialer(url string) (*websocket.Conn, *http.Response, error) {
	dialer := &websocket.Dialer{}
	return dialer.Dial(strings.Replace(url, "http", "ws", 1), nil)
}

func MustNewDialer(url string) *websocket.Conn {
	conn, _, err := NewDialer(url)

	if err != nil {
		panic("could not dial websocket")
	}

	return conn
}

func TestLifecycle(t *testing.T) {
	ws := NewTestServer()
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	e := ws.consumer.next(t)
	assert.Equal(t, "connect", e.name)
	assert.Equal(t, StateConnecting, e.state)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, TestMsg))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, TestMsg))

	e = ws.consumer.next(t)
	assert.Equal(t, "receive", e.name)
	assert.Equal(t, StateOpen, e.state)
	assert.Equal(t, Message{Type: TextMessage, Data: TestMsg}, e.msg)

	e = ws.consumer.next(t)
	assert.Equal(t, Message{Type: BinaryMessage, Data: TestMsg}, e.msg)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, FormatCloseMessage(CloseNormalClosure, "")))

	e = ws.consumer.next(t)
	assert.Equal(t, "disconnect", e.name)
	assert.Equal(t, StateClosed, e.state)
	assert.Equal(t, CloseNormalClosure, e.code)

	select {
	case e := <-ws.consumer.events:
		t.Fatalf("unexpected event after disconnect: %s", e.name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoEchoWithoutWrite(t *testing.T) {
	ws := NewTestServer()
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	ws.consumer.next(t)
	ws.consumer.next(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()

	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr), "expected a read timeout, got %v", err)
	assert.True(t, netErr.Timeout())
}

func TestEcho(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.receive = func(s *Session, msg Message) error {
		if msg.Type == BinaryMessage {
			return s.WriteBinary(msg.Data)
		}
		return s.Write(msg.Data)
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	for _, msgType := range []int{websocket.TextMessage, websocket.BinaryMessage} {
		require.NoError(t, conn.WriteMessage(msgType, TestMsg))

		typ, ret, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, msgType, typ)
		assert.Equal(t, TestMsg, ret)
	}
}

func TestSerialDelivery(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.receive = func(s *Session, msg Message) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	ws.consumer.next(t)

	n := 10
	for i := 0; i < n; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte{byte('a' + i)}))
	}

	for i := 0; i < n; i++ {
		e := ws.consumer.next(t)
		assert.Equal(t, "receive", e.name)
		assert.Equal(t, []byte{byte('a' + i)}, e.msg.Data)
	}
}

func TestConnectRejected(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.connect = func(*Session) error {
		return errors.New("nope")
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	_, resp, err := NewDialer(server.URL)

	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws.consumer.next(t)
	select {
	case e := <-ws.consumer.events:
		t.Fatalf("unexpected event after rejection: %s", e.name)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, ws.g.Len())
}

func TestAbnormalClosure(t *testing.T) {
	ws := NewTestServer()
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	ws.consumer.next(t)

	conn.Close()

	e := ws.consumer.next(t)
	assert.Equal(t, "disconnect", e.name)
	assert.Equal(t, CloseAbnormalClosure, e.code)
}

func TestSessionClose(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.receive = func(s *Session, msg Message) error {
		return s.CloseWithCode(4001, "bye")
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, TestMsg))

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, 4001, closeErr.Code)
	assert.Equal(t, "bye", closeErr.Text)

	ws.consumer.next(t)
	ws.consumer.next(t)
	e := ws.consumer.next(t)
	assert.Equal(t, "disconnect", e.name)
	assert.Equal(t, 4001, e.code)
}

func TestReceiveErrorClosesSession(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.receive = func(s *Session, msg Message) error {
		return errors.New("boom")
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, TestMsg))

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseInternalServerErr, closeErr.Code)
}

func TestReceiveErrorStopsDelivery(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.receive = func(s *Session, msg Message) error {
		return errors.New("boom")
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, TestMsg))
	}

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseInternalServerErr, closeErr.Code)

	assert.Equal(t, "connect", ws.consumer.next(t).name)
	assert.Equal(t, "receive", ws.consumer.next(t).name)

	e := ws.consumer.next(t)
	assert.Equal(t, "disconnect", e.name)
	assert.Equal(t, CloseInternalServerErr, e.code)
}

func TestNilConsumer(t *testing.T) {
	g := New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := g.HandleRequest(w, r, func() Consumer { return nil })
		assert.ErrorIs(t, err, ErrInvalidRoute)
	}))
	defer server.Close()

	_, resp, err := NewDialer(server.URL)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Zero(t, g.Len())
}

func TestWriteClosedClient(t *testing.T) {
	ws := NewTestServer()
	var session *Session
	ws.consumer.connect = func(s *Session) error {
		session = s
		return nil
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	ws.consumer.next(t)
	conn.Close()
	ws.consumer.next(t)

	assert.ErrorIs(t, session.Write(TestMsg), ErrSessionClosed)
	assert.ErrorIs(t, session.WriteBinary(TestMsg), ErrSessionClosed)
	assert.ErrorIs(t, session.Close(), ErrSessionClosed)
	assert.True(t, session.IsClosed())
	assert.Equal(t, CloseAbnormalClosure, session.CloseCode())
}

func TestWriteBeforeOpen(t *testing.T) {
	ws := NewTestServer()
	ws.consumer.connect = func(s *Session) error {
		assert.ErrorIs(t, s.Write(TestMsg), ErrSessionNotOpen)
		assert.Nil(t, s.RemoteAddr())
		assert.Zero(t, s.CloseCode())
		return nil
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	ws.consumer.next(t)
}

func TestUpgrader(t *testing.T) {
	ws := NewTestServer()
	server := httptest.NewServer(ws)
	defer server.Close()

	ws.g.Upgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return false },
	}

	_, _, err := NewDialer(server.URL)

	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}

func TestLen(t *testing.T) {
	ws := NewTestServer()
	server := httptest.NewServer(ws)
	defer server.Close()

	n := 5
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conns[i] = MustNewDialer(server.URL)
		defer conns[i].Close()
	}

	require.Eventually(t, func() bool { return ws.g.Len() == n }, time.Second, time.Millisecond)

	ss, err := ws.g.Sessions()
	require.NoError(t, err)
	assert.Len(t, ss, n)

	conns[0].Close()
	require.Eventually(t, func() bool { return ws.g.Len() == n-1 }, time.Second, time.Millisecond)
}

func TestClose(t *testing.T) {
	ws := NewTestServer()
	server := httptest.NewServer(ws)
	defer server.Close()

	n := 5
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conns[i] = MustNewDialer(server.URL)
		defer conns[i].Close()
	}
	require.Eventually(t, func() bool { return ws.g.Len() == n }, time.Second, time.Millisecond)

	require.NoError(t, ws.g.Close())

	for _, conn := range conns {
		_, _, err := conn.ReadMessage()
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, CloseGoingAway, closeErr.Code)
	}

	assert.Zero(t, ws.g.Len())
	assert.True(t, ws.g.IsClosed())
	assert.ErrorIs(t, ws.g.Close(), ErrClosed)

	_, err := ws.g.Sessions()
	assert.ErrorIs(t, err, ErrClosed)
	rec := httptest.NewRecorder()
	assert.ErrorIs(t, ws.g.HandleRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil), ErrClosed)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, resp, err := NewDialer(server.URL)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPingPong(t *testing.T) {
	ws := NewTestServer()
	ws.g.Config.PingPeriod = time.Millisecond
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	pinged := make(chan struct{})
	var once sync.Once
	conn.SetPingHandler(func(string) error {
		once.Do(func() { close(pinged) })
		return nil
	})
	go conn.ReadMessage()

	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("no ping received")
	}
}

func TestErrMessageBufferFull(t *testing.T) {
	ws := NewTestServer()
	ws.g.Config.MessageBufferSize = 0

	result := make(chan error, 1)
	ws.consumer.receive = func(s *Session, msg Message) error {
		var err error
		for i := 0; i < 100 && err == nil; i++ {
			err = s.Write(msg.Data)
		}
		result <- err
		return nil
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, TestMsg))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrMessageBufferFull)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestMisc(t *testing.T) {
	ws := NewTestServer()
	res := make(chan *Session, 1)
	ws.consumer.receive = func(s *Session, msg Message) error {
		res <- s
		return nil
	}
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := MustNewDialer(server.URL)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, TestMsg))

	s := <-res

	assert.NotEmpty(t, s.ID)
	assert.Contains(t, s.LocalAddr().String(), "127.0.0.1")
	assert.Contains(t, s.RemoteAddr().String(), "127.0.0.1")
	assert.Equal(t, websocket.FormatCloseMessage(4004, "test"), FormatCloseMessage(4004, "test"))
}
