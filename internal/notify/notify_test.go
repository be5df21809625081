package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMessageText(t *testing.T) {
	msg := Message{OrderID: "abc", SequenceNumber: 7, TotalAmount: 25, CustomerName: "Asha"}

	assert.Equal(t, "Hi Asha, your order #007 has been delivered. Total: 25.00. Thank you for dining with us.", msg.Text(""))
	assert.Contains(t, msg.Text("https://menu.example/"), "View it at https://menu.example/order/abc")
}

func TestSMSGateway_SendsQueryParameters(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		got = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewSMSGateway(config.SMSConfig{
		APIURL:     srv.URL + "/send",
		APIKey:     "key",
		SenderID:   "TBLSDE",
		TemplateID: "tpl-1",
	}, "", quietLogger())

	err := gw.Send(context.Background(), "9876543210", Message{OrderID: "o1", SequenceNumber: 1, TotalAmount: 10})
	require.NoError(t, err)

	assert.Equal(t, "key", got.Get("apikey"))
	assert.Equal(t, "TBLSDE", got.Get("sender"))
	assert.Equal(t, "9876543210", got.Get("number"))
	assert.Equal(t, "tpl-1", got.Get("templateid"))
	assert.Contains(t, got.Get("message"), "#001")
}

func TestSMSGateway_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gw := NewSMSGateway(config.SMSConfig{APIURL: srv.URL}, "", quietLogger())
	err := gw.Send(context.Background(), "9876543210", Message{OrderID: "o1"})
	assert.Error(t, err)
}

func TestSMSGateway_RequiresPhone(t *testing.T) {
	gw := NewSMSGateway(config.SMSConfig{APIURL: "http://unused"}, "", quietLogger())
	assert.Error(t, gw.Send(context.Background(), "", Message{OrderID: "o1"}))
}

func TestNew_SelectsProvider(t *testing.T) {
	s, err := New(config.NotifyConfig{Provider: "log"}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)
	assert.NoError(t, s.Send(context.Background(), "1", Message{OrderID: "o"}))

	s, err = New(config.NotifyConfig{Provider: "sms", SMS: config.SMSConfig{TestMode: true}}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = New(config.NotifyConfig{Provider: "sms", SMS: config.SMSConfig{APIURL: "http://gw"}}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &SMSGateway{}, s)

	s, err = New(config.NotifyConfig{Provider: "none"}, quietLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Send(context.Background(), "1", Message{}), ErrDisabled)

	_, err = New(config.NotifyConfig{Provider: "carrier-pigeon"}, quietLogger())
	assert.Error(t, err)
}

func TestKafkaPublisher_ParsesBrokers(t *testing.T) {
	p := NewKafkaPublisher(config.KafkaConfig{Brokers: " a:9092, ,b:9092", Topic: "t"}, quietLogger())
	defer p.Close()
	assert.NotNil(t, p.writer.Addr)
	assert.Equal(t, "t", p.writer.Topic)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
}
