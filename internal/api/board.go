package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tableside/internal/models"
	"tableside/internal/ordering"
)

const (
	boardWriteWait  = 10 * time.Second
	boardPongWait   = 60 * time.Second
	boardPingPeriod = 30 * time.Second
	boardBuffer     = 64
)

// Board fans order events out to connected staff screens over websockets.
// It implements ordering.EventPublisher.
type Board struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*boardClient]struct{}
	closed  bool
}

type boardClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewBoard creates a board. An empty allowedOrigin accepts any origin.
func NewBoard(logger *slog.Logger, allowedOrigin string) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		logger: logger.With("component", "board"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		clients: make(map[*boardClient]struct{}),
	}
}

// Publish queues the event for every client. Slow clients drop events
// instead of stalling the caller.
func (b *Board) Publish(event ordering.OrderEvent) {
	data, err := json.Marshal(boardEvent{Type: event.Type, Order: viewBoardOrder(event.Order)})
	if err != nil {
		b.logger.Error("marshal board event", "type", event.Type, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.logger.Warn("board client buffer full, dropping event", "type", event.Type)
		}
	}
}

// boardEvent is what screens receive. It carries no customer data and no
// audit comments.
type boardEvent struct {
	Type  string      `json:"type"`
	Order *boardOrder `json:"order"`
}

type boardOrder struct {
	ID               string               `json:"id"`
	Sequence         string               `json:"sequence"`
	SequenceNumber   int                  `json:"sequenceNumber"`
	TableNumber      int                  `json:"tableNumber"`
	Status           models.OrderStatus   `json:"status"`
	StatusMessage    string               `json:"statusMessage"`
	PaymentStatus    models.PaymentStatus `json:"paymentStatus"`
	TotalAmount      float64              `json:"totalAmount"`
	DiscountedAmount *float64             `json:"discountedAmount"`
	Items            []boardItem          `json:"items"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

type boardItem struct {
	ID       string `json:"id"`
	FoodItem string `json:"foodItem"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`
}

func viewBoardOrder(o *models.Order) *boardOrder {
	if o == nil {
		return nil
	}
	view := &boardOrder{
		ID:               o.ID,
		Sequence:         ordering.FormatSequence(o.SequenceNumber),
		SequenceNumber:   o.SequenceNumber,
		TableNumber:      o.TableNumber,
		Status:           o.Status,
		StatusMessage:    ordering.StatusMessage(o.Status),
		PaymentStatus:    o.PaymentStatus,
		TotalAmount:      o.TotalAmount,
		DiscountedAmount: o.DiscountedAmount,
		Items:            make([]boardItem, 0, len(o.Items)),
		UpdatedAt:        o.UpdatedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, boardItem{
			ID:       item.ID,
			FoodItem: item.FoodItemID,
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}
	return view
}

// Clients returns the number of connected screens.
func (b *Board) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client and rejects new ones.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for c := range b.clients {
		close(c.send)
		delete(b.clients, c)
	}
}

func (b *Board) register(c *boardClient) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[c] = struct{}{}
	return true
}

func (b *Board) unregister(c *boardClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Handle upgrades the request and streams events until the client leaves.
func (b *Board) Handle(c *gin.Context) {
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &boardClient{conn: conn, send: make(chan []byte, boardBuffer)}
	if !b.register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go b.writePump(client)
	go b.readPump(client)
}

// readPump only watches for pongs and disconnects; screens never send data.
func (b *Board) readPump(c *boardClient) {
	defer func() {
		b.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(boardPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(boardPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Warn("board client error", "error", err)
			}
			return
		}
	}
}

func (b *Board) writePump(c *boardClient) {
	ticker := time.NewTicker(boardPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(boardWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(boardWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
