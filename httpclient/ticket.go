package httpclient

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTicket is returned when a successful ticket response carries no ticket
var ErrNoTicket = errors.New("httpclient: response holds no ticket")

// TicketRequest is the body posted to a QPS ticket endpoint (/qps/{prefix}/ticket)
type TicketRequest struct {
	UserDirectory string              `json:"UserDirectory"`
	UserID        string              `json:"UserId"`
	Attributes    []map[string]string `json:"Attributes"`
	TargetID      string              `json:"TargetId,omitempty"`
}

// Ticket is the QPS answer to a TicketRequest
type Ticket struct {
	UserDirectory string              `json:"UserDirectory"`
	UserID        string              `json:"UserId"`
	Attributes    []map[string]string `json:"Attributes"`
	Ticket        string              `json:"Ticket"`
	TargetURI     string              `json:"TargetUri"`
}

func (c *restClient) Ticket(ctx context.Context, opts *Options, req TicketRequest) (*Ticket, error) {
	if req.UserDirectory == "" {
		return nil, NewConfigurationError("ticket.userdirectory", "user directory is required")
	}
	if req.UserID == "" {
		return nil, NewConfigurationError("ticket.userid", "user id is required")
	}
	if req.Attributes == nil {
		req.Attributes = []map[string]string{}
	}

	res, err := c.Request(ctx, opts, req)
	if err != nil {
		return nil, err
	}

	var t Ticket
	if err := res.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTicket, err)
	}
	if t.Ticket == "" {
		return nil, ErrNoTicket
	}
	return &t, nil
}
