package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/qlik-request/testing/gateway"
)

func TestTicket(t *testing.T) {
	g := newTLSGateway(t)
	c := New(Config{})

	ticket, err := c.Ticket(context.Background(), &Options{
		URI:         g.URL() + gateway.PathTicket,
		Certificate: testPEMCertificate(t),
		Identity:    &Identity{UserDirectory: "INTERNAL", UserID: "sa_proxy"},
	}, TicketRequest{UserDirectory: "CORP", UserID: "jdoe"})
	require.NoError(t, err)

	assert.Equal(t, "TkT-CORP-jdoe", ticket.Ticket)
	assert.Equal(t, "CORP", ticket.UserDirectory)
	assert.Equal(t, "jdoe", ticket.UserID)
	assert.NotEmpty(t, ticket.TargetURI)

	reqs := g.Requests()
	require.Len(t, reqs, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	assert.Equal(t, []any{}, sent["Attributes"], "attributes are sent as an empty list")
	assert.NotContains(t, sent, "TargetId")
}

func TestTicketValidation(t *testing.T) {
	g := newPlainGateway(t)
	c := New(Config{})
	opts := &Options{URI: g.URL() + gateway.PathTicket}

	_, err := c.Ticket(context.Background(), opts, TicketRequest{UserID: "jdoe"})
	assert.True(t, IsConfigurationError(err))

	_, err = c.Ticket(context.Background(), opts, TicketRequest{UserDirectory: "CORP"})
	assert.True(t, IsConfigurationError(err))

	assert.Empty(t, g.Requests())
}

func TestTicketMissingInResponse(t *testing.T) {
	g := newPlainGateway(t)
	g.Handle(http.MethodPost, "/qps/empty/ticket", gateway.JSON(http.StatusCreated, map[string]any{"UserId": "jdoe"}))
	g.Handle(http.MethodPost, "/qps/text/ticket", gateway.Text(http.StatusOK, "ticket issued"))

	c := New(Config{})
	req := TicketRequest{UserDirectory: "CORP", UserID: "jdoe"}

	_, err := c.Ticket(context.Background(), &Options{URI: g.URL() + "/qps/empty/ticket"}, req)
	assert.True(t, errors.Is(err, ErrNoTicket))

	_, err = c.Ticket(context.Background(), &Options{URI: g.URL() + "/qps/text/ticket"}, req)
	assert.True(t, errors.Is(err, ErrNoTicket))
}

func TestTicketGatewayRejection(t *testing.T) {
	g := newPlainGateway(t)
	g.Handle(http.MethodPost, "/qps/denied/ticket", gateway.Text(http.StatusForbidden, "Forbidden"))

	_, err := New(Config{}).Ticket(context.Background(), &Options{URI: g.URL() + "/qps/denied/ticket"},
		TicketRequest{UserDirectory: "CORP", UserID: "jdoe"})
	assert.True(t, IsHTTPStatusError(err, http.StatusForbidden))
	assert.False(t, errors.Is(err, ErrNoTicket))
}
