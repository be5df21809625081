package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiClient_LoginAndOrders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/staff-login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid phone number or password"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  map[string]any{"id": "w1", "name": "Ravi", "role": "waiter", "assignedTables": []int{3}},
		})
	})
	mux.HandleFunc("/api/orders/waiter-orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]any{{"id": "o1", "tableNumber": 3, "status": "ready", "sequenceNumber": 7}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := &ApiClient{httpClient: srv.Client(), BaseURL: srv.URL}

	err := client.Login("2222222222", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid phone number or password")

	require.NoError(t, client.Login("2222222222", "secret"))
	assert.Equal(t, "waiter", client.Staff.Role)

	orders, err := client.GetOrders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 7, orders[0].SequenceNumber)
}

func TestOrderRows(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	discounted := 20.0
	rows := orderRows([]Order{{
		SequenceNumber:   4,
		TableNumber:      2,
		Status:           "preparing",
		PaymentStatus:    "pending",
		TotalAmount:      25,
		DiscountedAmount: &discounted,
		CreatedAt:        now.Add(-5 * time.Minute),
	}}, now)

	require.Len(t, rows, 1)
	assert.Equal(t, "#004", rows[0][0])
	assert.Equal(t, "20.00", rows[0][3])
	assert.Equal(t, "pending", rows[0][4])
	assert.Equal(t, "5m0s", rows[0][5])
}
