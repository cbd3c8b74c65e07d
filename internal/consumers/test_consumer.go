package consumers

import "github.com/wsgate/wsgate"

const (
	TestRoomName      = "test_consumer"
	TestRoomGroupName = "test_consumer_group"
)

// TestConsumer accepts every connection and ignores what it receives.
// RoomName and RoomGroupName are set once on connect and not used afterwards.
type TestConsumer struct {
	RoomName      string
	RoomGroupName string
}

func NewTestConsumer() wsgate.Consumer {
	return &TestConsumer{}
}

func (c *TestConsumer) OnConnect(*wsgate.Session) error {
	c.RoomName = TestRoomName
	c.RoomGroupName = TestRoomGroupName
	return nil
}

func (c *TestConsumer) OnReceive(*wsgate.Session, wsgate.Message) error {
	return nil
}

func (c *TestConsumer) OnDisconnect(*wsgate.Session, int) {}
