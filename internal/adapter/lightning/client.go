// Package lightning adapts an lnd gRPC node to the usecase.LightningClient
// port. It uses lnd's own generated lnrpc/routerrpc stubs rather than
// hand-rolled protobuf (spec §9: "generated, never hand-edited"), grounded
// on the withObsrvr pack's grpc.Dial + generated-client wiring style.
package lightning

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	"github.com/v4vapp/bridge/internal/usecase"
)

// Client implements usecase.LightningClient against an lnd node's gRPC API.
type Client struct {
	conn     *grpc.ClientConn
	lightning lnrpc.LightningClient
	router   routerrpc.RouterClient
	macaroon string
	logger   zerolog.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Address     string // host:port of the lnd gRPC listener
	TLSCertPath string
	MacaroonHex string
	Logger      zerolog.Logger
}

// NewClient dials the lnd node and wraps its generated clients.
func NewClient(cfg ClientConfig) (*Client, error) {
	creds, err := loadTransportCreds(cfg.TLSCertPath)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial lnd: %w", err)
	}

	return &Client{
		conn:      conn,
		lightning: lnrpc.NewLightningClient(conn),
		router:    routerrpc.NewRouterClient(conn),
		macaroon:  cfg.MacaroonHex,
		logger:    cfg.Logger,
	}, nil
}

func loadTransportCreds(certPath string) (credentials.TransportCredentials, error) {
	if certPath == "" {
		return credentials.NewTLS(&tls.Config{}), nil
	}
	pem, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read lnd tls cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("parse lnd tls cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// withMacaroon attaches the node's admin macaroon to outgoing metadata.
func (c *Client) withMacaroon(ctx context.Context) context.Context {
	if c.macaroon == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "macaroon", c.macaroon)
}

// Close tears down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping confirms the lnd node answers GetInfo, for the admin readiness
// probe (internal/infrastructure/health).
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.lightning.GetInfo(c.withMacaroon(ctx), &lnrpc.GetInfoRequest{})
	return err
}

// SubscribeInvoices streams invoice state changes from sinceAddIndex
// forward, normalizing into usecase.LNInvoiceUpdate.
func (c *Client) SubscribeInvoices(ctx context.Context, sinceAddIndex uint64) (<-chan usecase.LNInvoiceUpdate, error) {
	stream, err := c.lightning.SubscribeInvoices(c.withMacaroon(ctx), &lnrpc.InvoiceSubscription{
		AddIndex: sinceAddIndex,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan usecase.LNInvoiceUpdate)
	go func() {
		defer close(out)
		for {
			inv, err := stream.Recv()
			if err != nil {
				c.logger.Warn().Err(err).Msg("lightning: invoice subscription ended")
				return
			}
			update := usecase.LNInvoiceUpdate{
				AddIndex:    inv.AddIndex,
				PaymentHash: fmt.Sprintf("%x", inv.RHash),
				AmountMsat:  inv.ValueMsat,
				Memo:        inv.Memo,
				State:       inv.State.String(),
			}
			if inv.SettleDate > 0 {
				update.SettledAt = time.Unix(inv.SettleDate, 0).UTC()
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SubscribePayments streams outgoing payment state changes, tagging each
// with the payment's creation index. lnd's TrackPayments takes no start
// index, so sinceCreationIndex is not used: only payments updated after
// the subscription opens are streamed, and earlier ones are not replayed.
func (c *Client) SubscribePayments(ctx context.Context, sinceCreationIndex uint64) (<-chan usecase.LNPaymentUpdate, error) {
	stream, err := c.router.TrackPayments(c.withMacaroon(ctx), &routerrpc.TrackPaymentsRequest{
		NoInflightUpdates: false,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan usecase.LNPaymentUpdate)
	go func() {
		defer close(out)
		for {
			p, err := stream.Recv()
			if err != nil {
				c.logger.Warn().Err(err).Msg("lightning: payment subscription ended")
				return
			}
			var fee int64
			if p.FeeMsat != 0 {
				fee = p.FeeMsat
			}
			out <- usecase.LNPaymentUpdate{
				CreationIndex: p.PaymentIndex,
				PaymentHash: p.PaymentHash,
				ValueMsat:   p.ValueMsat,
				FeeMsat:     fee,
				Status:      p.Status.String(),
			}
		}
	}()
	return out, nil
}

// SubscribeForwards streams HTLC-forward events (used for the owner's
// routing-fee income ledger entries).
func (c *Client) SubscribeForwards(ctx context.Context, sinceTimestamp time.Time) (<-chan usecase.LNForwardEvent, error) {
	stream, err := c.router.SubscribeHtlcEvents(c.withMacaroon(ctx), &routerrpc.SubscribeHtlcEventsRequest{})
	if err != nil {
		return nil, err
	}

	out := make(chan usecase.LNForwardEvent)
	go func() {
		defer close(out)
		for {
			evt, err := stream.Recv()
			if err != nil {
				c.logger.Warn().Err(err).Msg("lightning: htlc event subscription ended")
				return
			}
			fwd := evt.GetForwardEvent()
			if fwd == nil || fwd.Info == nil {
				continue
			}
			out <- usecase.LNForwardEvent{
				Timestamp:  time.Now().UTC(),
				AmountMsat: int64(fwd.Info.OutgoingAmtMsat),
				FeeMsat:    int64(fwd.Info.IncomingAmtMsat) - int64(fwd.Info.OutgoingAmtMsat),
			}
		}
	}()
	return out, nil
}

// AddInvoice creates a new invoice for an inbound LN->Hive conversion (F2).
func (c *Client) AddInvoice(ctx context.Context, amountMsat int64, memo string) (string, string, error) {
	resp, err := c.lightning.AddInvoice(c.withMacaroon(ctx), &lnrpc.Invoice{
		ValueMsat: amountMsat,
		Memo:      memo,
	})
	if err != nil {
		return "", "", err
	}
	return resp.PaymentRequest, fmt.Sprintf("%x", resp.RHash), nil
}

// PayInvoice pays a BOLT-11 invoice for an outbound Hive->LN conversion (F1).
func (c *Client) PayInvoice(ctx context.Context, paymentRequest string, maxFeeMsat int64) (*usecase.LNPaymentResult, error) {
	stream, err := c.router.SendPaymentV2(c.withMacaroon(ctx), &routerrpc.SendPaymentRequest{
		PaymentRequest: paymentRequest,
		FeeLimitMsat:   maxFeeMsat,
		TimeoutSeconds: 60,
	})
	if err != nil {
		return nil, err
	}

	for {
		update, err := stream.Recv()
		if err != nil {
			return nil, err
		}
		switch update.Status {
		case lnrpc.Payment_SUCCEEDED, lnrpc.Payment_FAILED:
			return &usecase.LNPaymentResult{
				PaymentHash: update.PaymentHash,
				ValueMsat:   update.ValueMsat,
				FeeMsat:     update.FeeMsat,
				Status:      update.Status.String(),
				FailureMsg:  update.FailureReason.String(),
			}, nil
		}
	}
}

// DecodePayReq decodes a BOLT-11 invoice via the node's own decoder (the
// node always has the full parser; the bridge's own bech32.go is reserved
// for the lightning-address resolution path where no node round trip
// applies yet).
func (c *Client) DecodePayReq(ctx context.Context, paymentRequest string) (*usecase.LNPayReqInfo, error) {
	resp, err := c.lightning.DecodePayReq(c.withMacaroon(ctx), &lnrpc.PayReqString{PayReq: paymentRequest})
	if err != nil {
		return nil, err
	}
	return &usecase.LNPayReqInfo{
		AmountMsat:  resp.NumMsat,
		PaymentHash: resp.PaymentHash,
		Destination: resp.Destination,
	}, nil
}
