// Package wsgate implements a small websocket gateway.
//
// A ProtocolRouter sends upgrade requests to a URLRouter, which picks the first
// Route whose path matches exactly and hands the request to a Gateway. The
// gateway creates one Consumer per connection and calls its hooks serially:
//
//	type Echo struct{}
//
//	func (Echo) OnConnect(*wsgate.Session) error { return nil }
//	func (Echo) OnReceive(s *wsgate.Session, msg wsgate.Message) error {
//		return s.Write(msg.Data)
//	}
//	func (Echo) OnDisconnect(*wsgate.Session, int) {}
//
//	func main() {
//		g := wsgate.New()
//		ws, _ := wsgate.NewURLRouter(g, []wsgate.Route{
//			{Path: "echo/", Factory: func() wsgate.Consumer { return Echo{} }},
//		})
//		http.ListenAndServe(":5000", &wsgate.ProtocolRouter{WebSocket: ws})
//	}
package wsgate
