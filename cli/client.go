package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ApiClient talks to the tableside API on behalf of a signed-in staff member
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	token      string
	Staff      Staff
}

// NewApiClient creates a client for TABLESIDE_API_URL, or localhost
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("TABLESIDE_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &ApiClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    baseURL,
	}
}

// Staff is the signed-in account
type Staff struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PhoneNumber    string `json:"phoneNumber"`
	Role           string `json:"role"`
	AssignedTables []int  `json:"assignedTables"`
}

// Order is the subset of the order document the console shows
type Order struct {
	ID               string      `json:"id"`
	TableNumber      int         `json:"tableNumber"`
	SequenceNumber   int         `json:"sequenceNumber"`
	Status           string      `json:"status"`
	PaymentStatus    string      `json:"paymentStatus"`
	PaymentMethod    string      `json:"paymentMethod"`
	TotalAmount      float64     `json:"totalAmount"`
	DiscountedAmount *float64    `json:"discountedAmount"`
	AppliedCoupon    *string     `json:"appliedCoupon"`
	Items            []OrderItem `json:"items"`
	Comments         []Comment   `json:"comments"`
	CreatedAt        time.Time   `json:"createdAt"`
}

type OrderItem struct {
	ID       string  `json:"id"`
	FoodItem string  `json:"foodItem"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Comment struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Text      string    `json:"text"`
}

// Stats mirrors the accountance summary
type Stats struct {
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	CompletedOrders int     `json:"completedOrders"`
	TotalAmount     float64 `json:"totalAmount"`
	CashOrders      int     `json:"cashOrders"`
	UPIOrders       int     `json:"upiOrders"`
	CardOrders      int     `json:"cardOrders"`
	CashAmount      float64 `json:"cashAmount"`
	UPIAmount       float64 `json:"upiAmount"`
	CardAmount      float64 `json:"cardAmount"`
	DailyRevenue    float64 `json:"dailyRevenue"`
	DateFilter      string  `json:"dateFilter"`
}

// apiError is the error body every failing endpoint returns
type apiError struct {
	Error string `json:"error"`
}

func (c *ApiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e apiError
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s (%d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login signs a staff member in and keeps the token for later calls
func (c *ApiClient) Login(phone, password string) error {
	var resp struct {
		Token string `json:"token"`
		User  Staff  `json:"user"`
	}
	err := c.do(http.MethodPost, "/api/auth/staff-login", map[string]string{
		"phoneNumber": phone,
		"password":    password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	c.Staff = resp.User
	return nil
}

// GetOrders returns the orders the signed-in role can see
func (c *ApiClient) GetOrders() ([]Order, error) {
	path := "/api/orders/all-orders"
	if c.Staff.Role == "waiter" {
		path = "/api/orders/waiter-orders"
	}
	var orders []Order
	if err := c.do(http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetStatus moves an order and returns the server's summary message
func (c *ApiClient) SetStatus(id, status string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &resp)
	return resp.Message, err
}

// RecordPayment marks an order paid with method
func (c *ApiClient) RecordPayment(id, method string) error {
	return c.do(http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/payment", map[string]string{"paymentMethod": method}, nil)
}

// Accountance fetches revenue statistics for filter
func (c *ApiClient) Accountance(filter string) (*Stats, error) {
	var stats Stats
	if err := c.do(http.MethodGet, "/api/orders/accountance?dateFilter="+url.QueryEscape(filter), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
