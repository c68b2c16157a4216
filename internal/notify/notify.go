// Package notify fans wallet and game events out to interested parties:
// websocket clients and the cache invalidator.
package notify

// Event types pushed to clients
const (
	EventWalletUpdate      = "WALLET_UPDATE"
	EventTransactionUpdate = "TRANSACTION_UPDATE"
	EventGameCreated       = "GAME_CREATED"
	EventGameRound         = "GAME_ROUND"
	EventGameCompleted     = "GAME_COMPLETED"
)

// Event is a message addressed to one user
type Event struct {
	Type   string `json:"type"`
	UserID uint   `json:"user_id"`
	Data   any    `json:"data"`
}

// Publisher receives events after the change they describe has been committed
type Publisher interface {
	Publish(ev Event)
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(Event) {}

// Multi publishes to each publisher in turn
type Multi []Publisher

func (m Multi) Publish(ev Event) {
	for _, p := range m {
		p.Publish(ev)
	}
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }
