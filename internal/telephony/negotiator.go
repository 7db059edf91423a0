package telephony

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/observability"
)

const (
	TwiMLPath         = "/v1/negotiations/twiml"
	StatusPath        = "/v1/negotiations/status"
	TranscriptionPath = "/v1/negotiations/transcription"
)

// CallCreator is the slice of the Twilio REST API used to place calls.
type CallCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

type Config struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	SellerNumber  string
	PublicBaseURL string
}

// NewTwilioCaller returns the Twilio call API authenticated with cfg's credentials.
func NewTwilioCaller(cfg Config) (CallCreator, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio account sid and auth token are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return client.Api, nil
}

// Call tracks one negotiation call from initiation through its status callbacks.
type Call struct {
	SID       string    `json:"call_sid"`
	Status    string    `json:"status"`
	Item      string    `json:"item"`
	Supplier  Supplier  `json:"supplier"`
	Script    Script    `json:"script"`
	To        string    `json:"to"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatusUpdate struct {
	CallSID  string
	Status   string
	Duration string
}

type Negotiator struct {
	cfg    Config
	calls  CallCreator
	store  backend.Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	tracked map[string]*Call
}

func NewNegotiator(cfg Config, calls CallCreator, store backend.Store, logger *slog.Logger) (*Negotiator, error) {
	if calls == nil {
		return nil, fmt.Errorf("call creator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number is required")
	}
	if _, err := url.ParseRequestURI(cfg.PublicBaseURL); err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Negotiator{
		cfg:     cfg,
		calls:   calls,
		store:   store,
		logger:  logger,
		now:     time.Now,
		tracked: map[string]*Call{},
	}, nil
}

// Initiate looks up the item's supplier and asks Twilio to call the seller
// line, or the supplier's own number when no seller line is configured.
func (n *Negotiator) Initiate(ctx context.Context, itemName string) (Call, error) {
	logger := observability.LoggerWithTrace(ctx, n.logger)
	supplier, err := FindSupplier(ctx, n.store, itemName)
	if err != nil {
		return Call{}, err
	}
	to := n.cfg.SellerNumber
	if to == "" {
		to = supplier.Phone
	}
	if to == "" {
		return Call{}, fmt.Errorf("no phone number to call for %q", supplier.Item)
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(n.cfg.FromNumber)
	params.SetUrl(n.cfg.PublicBaseURL + TwiMLPath + "?item=" + url.QueryEscape(supplier.Item))
	params.SetMethod("GET")
	params.SetStatusCallback(n.cfg.PublicBaseURL + StatusPath)
	params.SetStatusCallbackMethod("POST")
	params.SetRecord(true)

	resp, err := n.calls.CreateCall(params)
	if err != nil {
		observability.IncrementNegotiationCall("failed")
		logger.ErrorContext(ctx, "negotiation call failed", slog.String("item", supplier.Item), slog.Any("error", err))
		return Call{}, fmt.Errorf("create call: %w", err)
	}

	call := Call{
		Status:    "initiated",
		Item:      supplier.Item,
		Supplier:  supplier,
		Script:    NewScript(supplier.Item, supplier.ReorderQuantity(), supplier.SellingPrice),
		To:        to,
		UpdatedAt: n.now().UTC(),
	}
	if resp != nil && resp.Sid != nil {
		call.SID = *resp.Sid
	}
	if resp != nil && resp.Status != nil {
		call.Status = string(*resp.Status)
	}
	observability.IncrementNegotiationCall(call.Status)
	logger.InfoContext(ctx, "negotiation call initiated",
		slog.String("call_sid", call.SID),
		slog.String("item", call.Item),
		slog.String("supplier", supplier.Name),
	)

	if call.SID != "" {
		n.mu.Lock()
		tracked := call
		n.tracked[call.SID] = &tracked
		n.mu.Unlock()
	}
	return call, nil
}

// TwiML renders the call flow for the named item.
func (n *Negotiator) TwiML(ctx context.Context, itemName string) ([]byte, error) {
	supplier, err := FindSupplier(ctx, n.store, itemName)
	if err != nil {
		return nil, err
	}
	seller := n.cfg.SellerNumber
	if seller == "" {
		seller = supplier.Phone
	}
	return TwiML(supplier.Item, supplier.ReorderQuantity(), supplier.SellingPrice, seller, n.cfg.PublicBaseURL+TranscriptionPath)
}

// RecordStatus applies a Twilio status callback. Unknown call SIDs are still
// counted and logged but return backend.ErrNotFound.
func (n *Negotiator) RecordStatus(ctx context.Context, update StatusUpdate) (Call, error) {
	if update.CallSID == "" || update.Status == "" {
		return Call{}, fmt.Errorf("call sid and status are required")
	}
	observability.IncrementNegotiationCall(update.Status)
	logger := observability.LoggerWithTrace(ctx, n.logger).With(
		slog.String("call_sid", update.CallSID),
		slog.String("status", update.Status),
	)
	switch update.Status {
	case "failed", "busy", "no-answer", "canceled":
		logger.WarnContext(ctx, "negotiation call did not connect")
	default:
		logger.InfoContext(ctx, "negotiation call status", slog.String("duration", update.Duration))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	call, ok := n.tracked[update.CallSID]
	if !ok {
		return Call{}, fmt.Errorf("call %s: %w", update.CallSID, backend.ErrNotFound)
	}
	call.Status = update.Status
	call.UpdatedAt = n.now().UTC()
	return *call, nil
}

func (n *Negotiator) Get(callSID string) (Call, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	call, ok := n.tracked[callSID]
	if !ok {
		return Call{}, false
	}
	return *call, true
}
