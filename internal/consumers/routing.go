package consumers

import "github.com/wsgate/wsgate"

// WebSocketRoutes is the websocket routing table of the application.
func WebSocketRoutes() []wsgate.Route {
	return []wsgate.Route{
		{Path: "test/", Factory: NewTestConsumer},
	}
}
