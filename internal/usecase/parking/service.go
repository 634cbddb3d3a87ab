// Package parking implements the supervisor: it registers plates,
// assigns slots, bills exits, and drives the lane gates through the
// controller link.
package parking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	qrcode "github.com/skip2/go-qrcode"

	"parkd/internal/domain"
	"parkd/internal/infra/config"
	"parkd/internal/infra/tracer"
)

// plateRe accepts Indian-style registration plates, e.g. KA05MH1234 or
// DL8CAF5031.
var plateRe = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{0,2}[0-9]{3,4}$`)

// ExitTicket is handed to the operator when an exit is requested: the
// open record plus the computed bill and a payment QR, pending
// confirmation.
type ExitTicket struct {
	Record      domain.ParkingRecord `json:"record"`
	DurationMin int                  `json:"duration_min"`
	Amount      float64              `json:"amount"`
	UPIURI      string               `json:"upi_uri,omitempty"`
	QRPath      string               `json:"qr_path,omitempty"`
}

// Service coordinates the parking flow between the store, the gate
// controller, and the event bus.
type Service struct {
	store domain.ParkingStore
	link  domain.ControllerLink
	bus   domain.EventBus
	cfg   config.ParkingConfig
	log   *slog.Logger

	now func() time.Time

	mu      sync.Mutex
	pending *ExitTicket
	holds   map[domain.Lane]*time.Timer
}

// New wires a parking service. The link may be nil when running
// store-only (reports, doctor).
func New(store domain.ParkingStore, link domain.ControllerLink, bus domain.EventBus, cfg config.ParkingConfig, log *slog.Logger) *Service {
	return &Service{
		store: store,
		link:  link,
		bus:   bus,
		cfg:   cfg,
		log:   log.With("component", "parking"),
		now:   time.Now,
		holds: make(map[domain.Lane]*time.Timer),
	}
}

// Run consumes controller lines until the context is canceled or the
// link closes, translating event tokens into bus events.
func (s *Service) Run(ctx context.Context) error {
	if s.link == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			s.cancelHolds()
			return ctx.Err()
		case line, ok := <-s.link.Lines():
			if !ok {
				s.cancelHolds()
				return domain.WrapOp("parking.run", domain.ErrLinkDown)
			}
			s.handleLine(ctx, line)
		}
	}
}

func (s *Service) handleLine(ctx context.Context, line string) {
	tok, ok := domain.ParseEventToken(strings.TrimSpace(line))
	if !ok {
		s.log.Debug("ignoring unknown controller line", "line", line)
		return
	}
	lane := tok.Lane()
	switch tok {
	case domain.TokenEntryDetected, domain.TokenExitDetected:
		s.log.Info("vehicle detected", "lane", lane)
		s.publish(ctx, domain.EventVehicleDetected, lane, nil)
	case domain.TokenEntryGateOpened, domain.TokenExitGateOpened:
		s.log.Info("gate opened", "lane", lane)
		s.publish(ctx, domain.EventGateOpened, lane, nil)
		s.scheduleClose(lane)
	case domain.TokenEntryGateClosed, domain.TokenExitGateClosed:
		s.log.Info("gate closed", "lane", lane)
		s.publish(ctx, domain.EventGateClosed, lane, nil)
	}
}

// RegisterPlate logs an arriving vehicle, assigns the lowest free slot,
// and opens the entry gate.
func (s *Service) RegisterPlate(ctx context.Context, plate string) (*domain.ParkingRecord, error) {
	ctx, span := tracer.StartSpan(ctx, "parking.register_plate")
	defer span.End()

	plate = strings.ToUpper(strings.TrimSpace(plate))
	if !plateRe.MatchString(plate) {
		return nil, domain.WrapOp("register "+plate, domain.ErrInvalidPlate)
	}
	span.SetAttributes(tracer.StringAttr("plate", plate))

	if open, err := s.store.FindOpen(ctx, plate); err != nil && !domain.IsNotFound(err) {
		tracer.RecordError(span, err)
		return nil, err
	} else if open != nil {
		return nil, domain.WrapOp("register "+plate, domain.ErrAlreadyParked)
	}

	slot, err := s.assignSlot(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		if err == domain.ErrLotFull {
			s.publish(ctx, domain.EventLotFull, "", nil)
			return nil, domain.WrapOp("register "+plate, err)
		}
		return nil, err
	}

	rec := domain.ParkingRecord{
		ID:        newID(s.now()),
		Plate:     plate,
		Slot:      slot,
		Status:    domain.StatusIn,
		EntryTime: s.now(),
	}
	if err := s.store.LogEntry(ctx, rec); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("register "+plate, err)
	}

	s.log.Info("vehicle registered", "plate", plate, "slot", slot)
	s.openGate(domain.LaneEntry)
	s.publish(ctx, domain.EventEntryLogged, domain.LaneEntry, rec)
	tracer.SetOK(span)
	return &rec, nil
}

// RequestExit bills the open record for a plate and prepares a payment
// ticket. The gate stays closed until ConfirmPayment. Only one exit may
// be pending at a time; a new request replaces it.
func (s *Service) RequestExit(ctx context.Context, plate string) (*ExitTicket, error) {
	ctx, span := tracer.StartSpan(ctx, "parking.request_exit")
	defer span.End()

	plate = strings.ToUpper(strings.TrimSpace(plate))
	rec, err := s.store.FindOpen(ctx, plate)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("exit "+plate, err)
	}

	mins, amount := Fee(rec.EntryTime, s.now(), s.cfg.RatePerMin)
	ticket := &ExitTicket{Record: *rec, DurationMin: mins, Amount: amount}
	if s.cfg.UPI.ID != "" {
		ticket.UPIURI = upiURI(s.cfg.UPI, amount, rec.Plate)
		if path, err := s.writeQR(ticket.UPIURI, rec.Plate); err != nil {
			s.log.Warn("payment QR generation failed", "plate", plate, "error", err)
		} else {
			ticket.QRPath = path
		}
	}

	s.mu.Lock()
	s.pending = ticket
	s.mu.Unlock()

	s.log.Info("exit pending", "plate", plate, "minutes", mins, "amount", amount)
	s.publish(ctx, domain.EventExitPending, domain.LaneExit, ticket)
	tracer.SetOK(span)
	return ticket, nil
}

// ConfirmPayment completes the pending exit for a plate and opens the
// exit gate.
func (s *Service) ConfirmPayment(ctx context.Context, plate string) (*domain.ParkingRecord, error) {
	ctx, span := tracer.StartSpan(ctx, "parking.confirm_payment")
	defer span.End()

	plate = strings.ToUpper(strings.TrimSpace(plate))
	s.mu.Lock()
	ticket := s.pending
	s.mu.Unlock()
	if ticket == nil || ticket.Record.Plate != plate {
		return nil, domain.WrapOp("confirm "+plate, domain.ErrNoPendingExit)
	}

	exitAt := s.now()
	if err := s.store.CompleteExit(ctx, ticket.Record.ID, exitAt, ticket.DurationMin, ticket.Amount); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("confirm "+plate, err)
	}

	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()

	rec := ticket.Record
	rec.Status = domain.StatusOut
	rec.ExitTime = &exitAt
	rec.DurationMin = ticket.DurationMin
	rec.Amount = ticket.Amount

	s.log.Info("payment confirmed", "plate", plate, "amount", rec.Amount)
	s.openGate(domain.LaneExit)
	s.publish(ctx, domain.EventPaymentConfirmed, domain.LaneExit, rec)
	tracer.SetOK(span)
	return &rec, nil
}

// PendingExit returns the ticket awaiting payment, if any.
func (s *Service) PendingExit() *ExitTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// History returns the full parking log, newest first.
func (s *Service) History(ctx context.Context) ([]domain.ParkingRecord, error) {
	return s.store.History(ctx)
}

// Slots maps every slot label to the plate occupying it, or "" if free.
func (s *Service) Slots(ctx context.Context) (map[string]string, error) {
	occupied, err := s.store.OccupiedSlots(ctx)
	if err != nil {
		return nil, err
	}
	slots := make(map[string]string, s.cfg.TotalSlots)
	for i := 1; i <= s.cfg.TotalSlots; i++ {
		label := slotLabel(i)
		slots[label] = occupied[label]
	}
	return slots, nil
}

// Stats returns current occupancy and revenue.
func (s *Service) Stats(ctx context.Context) (domain.LotStats, error) {
	return s.store.Stats(ctx, s.cfg.TotalSlots)
}

// assignSlot picks the lowest-numbered free slot.
func (s *Service) assignSlot(ctx context.Context) (string, error) {
	occupied, err := s.store.OccupiedSlots(ctx)
	if err != nil {
		return "", err
	}
	for i := 1; i <= s.cfg.TotalSlots; i++ {
		label := slotLabel(i)
		if _, taken := occupied[label]; !taken {
			return label, nil
		}
	}
	return "", domain.ErrLotFull
}

func (s *Service) openGate(lane domain.Lane) {
	if s.link == nil {
		return
	}
	if err := s.link.Send(domain.OpenCommand(lane)); err != nil {
		s.log.Error("gate open command failed", "lane", lane, "error", err)
	}
}

// scheduleClose arms the auto-close timer for a lane; a reopening
// before it fires restarts the hold.
func (s *Service) scheduleClose(lane domain.Lane) {
	hold := s.cfg.HoldDuration()
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.holds[lane]; ok {
		t.Stop()
	}
	s.holds[lane] = time.AfterFunc(hold, func() {
		if err := s.link.Send(domain.CloseCommand(lane)); err != nil {
			s.log.Error("gate close command failed", "lane", lane, "error", err)
		}
	})
}

func (s *Service) cancelHolds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for lane, t := range s.holds {
		t.Stop()
		delete(s.holds, lane)
	}
}

func (s *Service) publish(ctx context.Context, typ domain.EventType, lane domain.Lane, payload any) {
	if s.bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = b
		}
	}
	s.bus.Publish(ctx, domain.Event{Type: typ, Timestamp: s.now(), Lane: lane, Payload: raw})
}

// writeQR renders the UPI URI as a PNG under the images directory.
func (s *Service) writeQR(uri, plate string) (string, error) {
	if err := os.MkdirAll(s.cfg.ImagesDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.ImagesDir, fmt.Sprintf("qr_%s.png", plate))
	if err := qrcode.WriteFile(uri, qrcode.Medium, 256, path); err != nil {
		return "", err
	}
	return path, nil
}

func upiURI(upi config.UPIConfig, amount float64, plate string) string {
	q := url.Values{}
	q.Set("pa", upi.ID)
	q.Set("pn", upi.Payee)
	q.Set("am", fmt.Sprintf("%.2f", amount))
	q.Set("cu", "INR")
	q.Set("tn", "Parking fee "+plate)
	return "upi://pay?" + q.Encode()
}

func slotLabel(i int) string {
	return fmt.Sprintf("A%d", i)
}

// entropy is shared so IDs minted in the same millisecond stay unique.
var entropy = ulid.DefaultEntropy()

func newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
