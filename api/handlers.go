/*
handlers.go - HTTP API handlers for the front-desk settlement engine

PURPOSE:
  Exposes check-in and its read models over REST. Handles HTTP
  request/response, JSON and form decoding, and delegates to
  checkin.Service.

ENDPOINTS:
  Check-in:
    POST   /api/checkin                    {booking_id, create_invoice}
    POST   /api/bookings/{id}/check-in     {create_invoice}

  Read models:
    GET    /api/bookings?status=confirmed  Arrivals list
    GET    /api/bookings/{id}/settlement   Balance + decision preview
    GET    /api/invoices/{number}          Invoice header + lines

  Ops:
    GET    /api/health                     Database reachability

  Scenarios (ENABLE_SCENARIOS only):
    GET    /api/scenarios                  List demo scenarios
    GET    /api/scenarios/current          Loaded scenario
    POST   /api/scenarios/load             Load a demo scenario
    POST   /api/scenarios/reset            Clear all data

REQUEST FLOW:
  1. Parse HTTP request (JSON or form post)
  2. Validate input
  3. Acting staff id from the session identity
  4. checkin.Service
  5. Serialize response or error

ERROR HANDLING:
  Errors are returned as {success:false, message, code} with a status by
  error kind:
  - 400: invalid_request
  - 402: payment_required
  - 404: not_found
  - 409: already_done, invalid_state
  - 500: configuration_error, sequence_exhausted, storage_error

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adf/settlement-engine/auth"
	"github.com/adf/settlement-engine/checkin"
	"github.com/adf/settlement-engine/ledger"
	"github.com/adf/settlement-engine/store/sqlstore"
)

// maxBodyBytes caps request bodies; check-in bodies are a few dozen bytes.
const maxBodyBytes = 64 << 10

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlstore.DB
	Checkin    *checkin.Service
	Log        *zap.Logger
	BusinessID string

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(store *sqlstore.DB, svc *checkin.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Checkin:  svc,
		Log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// CHECK-IN HANDLERS
// =============================================================================

// CheckIn handles POST /api/checkin.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
		id, _ := strconv.ParseInt(r.PostForm.Get("booking_id"), 10, 64)
		req.BookingID = FlexInt64(id)
		req.CreateInvoice = FlexBool(parseFlexBool(r.PostForm.Get("create_invoice")))
	} else {
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
		if err := decodeJSON(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		writeLedgerError(w, ledger.NewError(ledger.ErrInvalidRequest, "booking id is required"))
		return
	}

	h.checkIn(w, r, ledger.BookingID(req.BookingID), bool(req.CreateInvoice))
}

// CheckInBooking handles POST /api/bookings/{id}/check-in.
func (h *Handler) CheckInBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	var req BookingCheckInRequest
	if isForm(r) {
		if err := parseForm(r); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
		req.CreateInvoice = FlexBool(parseFlexBool(r.PostForm.Get("create_invoice")))
	} else {
		body, err := readBody(w, r)
		if err != nil || decodeJSON(body, &req) != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
	}

	h.checkIn(w, r, id, bool(req.CreateInvoice))
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request, id ledger.BookingID, createInvoice bool) {
	res, err := h.Checkin.CheckIn(r.Context(), checkin.Request{
		BookingID:     id,
		CreateInvoice: createInvoice,
		StaffID:       staffFrom(r),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckInResponse(res))
}

// staffFrom returns the session user id, nil for anonymous callers.
func staffFrom(r *http.Request) *ledger.StaffID {
	user, ok := auth.FromContext(r.Context()).CurrentUser()
	if !ok || user.ID <= 0 {
		return nil
	}
	id := ledger.StaffID(user.ID)
	return &id
}

// =============================================================================
// READ MODEL HANDLERS
// =============================================================================

// GetSettlement returns the check-in preview of a booking.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingIDParam(w, r)
	if !ok {
		return
	}
	p, err := h.Checkin.Preview(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(p))
}

// ListBookings returns bookings, optionally filtered by ?status=.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if err := h.validate.Var(status, "omitempty,oneof=pending confirmed checked_in checked_out cancelled"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Unknown booking status")
		return
	}
	bookings, err := h.Store.ListBookings(r.Context(), ledger.BookingStatus(status))
	if err != nil {
		h.Log.Error("list bookings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to list bookings")
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns an invoice by number.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if err := h.validate.Var(number, "required,max=30,printascii"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid invoice number")
		return
	}
	inv, err := h.Store.GetInvoice(r.Context(), number)
	if err != nil {
		h.Log.Error("load invoice failed", zap.String("invoice_number", number), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load invoice")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "not_found", "Invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dto := HealthDTO{Status: "ok", Database: h.Store.Dialect().Name(), BusinessID: h.BusinessID}
	if err := h.Store.SQL().PingContext(r.Context()); err != nil {
		h.Log.Warn("health check failed", zap.Error(err))
		dto.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, dto)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message, Code: code})
}

// writeLedgerError maps an error kind to its status. Storage details never
// reach the client; the service has already logged them.
func writeLedgerError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), ledger.Code(err), ledger.Message(err))
}

func statusFor(err error) int {
	switch ledger.KindOf(err) {
	case ledger.ErrInvalidRequest:
		return http.StatusBadRequest
	case ledger.ErrNotFound:
		return http.StatusNotFound
	case ledger.ErrAlreadyDone, ledger.ErrInvalidState:
		return http.StatusConflict
	case ledger.ErrPaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func bookingIDParam(w http.ResponseWriter, r *http.Request) (ledger.BookingID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeLedgerError(w, ledger.NewError(ledger.ErrInvalidRequest, "booking id is required"))
		return 0, false
	}
	return ledger.BookingID(id), true
}

func isForm(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

func parseForm(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}
