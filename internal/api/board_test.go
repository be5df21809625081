package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/models"
	"tableside/internal/ordering"
)

func TestBoard_BroadcastsOrderEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	board := NewBoard(slog.New(slog.NewTextHandler(io.Discard, nil)), "")
	router := gin.New()
	router.GET("/ws", board.Handle)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return board.Clients() == 1 }, time.Second, 10*time.Millisecond)

	board.Publish(ordering.OrderEvent{
		Type:  ordering.EventOrderCreated,
		Order: &models.Order{
			ID:             "o1",
			CustomerID:     "cust-1",
			TableNumber:    4,
			SequenceNumber: 7,
			Status:         models.OrderStatusPending,
			Items:          []models.OrderItem{{ID: "i1", FoodItemID: "burger", Quantity: 2, Price: 10}},
			Comments:       []models.Comment{{Status: models.OrderStatusPending, Text: "Delivery notification SMS sent to Asha (9999999999)"}},
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cust-1")
	assert.NotContains(t, string(data), "9999999999")

	var event boardEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, ordering.EventOrderCreated, event.Type)
	require.NotNil(t, event.Order)
	assert.Equal(t, "o1", event.Order.ID)
	assert.Equal(t, 4, event.Order.TableNumber)
	assert.Equal(t, "#007", event.Order.Sequence)
	require.Len(t, event.Order.Items, 1)
	assert.Equal(t, 2, event.Order.Items[0].Quantity)

	board.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, board.Clients())
}

func TestBoard_RejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	board := NewBoard(nil, "https://pos.example.com")
	router := gin.New()
	router.GET("/ws", board.Handle)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, _, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)
	assert.Zero(t, board.Clients())

	// Publishing with no clients is a no-op.
	board.Publish(ordering.OrderEvent{Type: ordering.EventOrderUpdated, Order: &models.Order{ID: "o2"}})
}
