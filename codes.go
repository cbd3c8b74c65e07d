package wsgate

import "github.com/gorilla/websocket"

// Close codes used by the gateway. The 4000-4999 range is reserved for applications.
const (
	CloseNormalClosure     = websocket.CloseNormalClosure
	CloseGoingAway         = websocket.CloseGoingAway
	CloseNoStatusReceived  = websocket.CloseNoStatusReceived
	CloseAbnormalClosure   = websocket.CloseAbnormalClosure
	CloseInternalServerErr = websocket.CloseInternalServerErr

	CloseNoRoute = 4004
)

// FormatCloseMessage formats closeCode and text as a websocket close message.
func FormatCloseMessage(closeCode int, text string) []byte {
	return websocket.FormatCloseMessage(closeCode, text)
}

func isExpectedCloseCode(code int) bool {
	switch code {
	case CloseNormalClosure, CloseGoingAway, CloseNoStatusReceived:
		return true
	}
	return false
}

func isApplicationCloseCode(code int) bool {
	return code >= 4000 && code <= 4999
}
