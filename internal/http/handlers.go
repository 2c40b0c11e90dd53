package http

import (
	"errors"
	"fmt"
	"net/http"

	"moneyspider/internal/core"
	"moneyspider/internal/log"
	"moneyspider/internal/services"
)

// validationErrors are reported as 422; anything else is a 500.
var validationErrors = []error{
	core.ErrEmptyAmount,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrUnknownCategory,
	services.ErrInvalidSelection,
	services.ErrClearNotRequested,
	errInvalidField,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps err to a JSON error response. Unexpected errors are
// logged and their detail hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isValidationError(err) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
		log.NewFields().WithHTTPRequest(r.Method, r.URL.Path))
	InternalServerError("internal error").Write(w)
}

// parseBody reads a POST body, writing the failure response itself.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return nil, false
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return nil, false
	}
	return p, true
}

// respondState completes b with the current state and writes it.
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	state, err := s.svc.State(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpSelect, err)
		return
	}
	b.JSON(state).Write(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	s.respondState(w, r, NewHTMXResponse())
}

func (s *Server) handleAmount(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if err := s.svc.SetAmountText(r.Context(), p.Get("amount")); err != nil {
		s.writeError(w, r, log.OpRefresh, err)
		return
	}
	s.respondState(w, r, NewHTMXResponse().TriggerCategoriesReordered(s.svc.RefreshMode()))
}

func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	d, err := core.ParseDate(p.Get("date"))
	if err == nil {
		err = s.svc.SetDate(d)
	}
	if err != nil {
		s.writeError(w, r, log.OpSelect, err)
		return
	}
	s.respondState(w, r, NewHTMXResponse())
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	index, present, err := p.GetInt("index")
	if err == nil && !present {
		err = fmt.Errorf("%w: index is required", errInvalidField)
	}
	if err == nil {
		err = s.svc.SelectCategory(index)
	}
	if err != nil {
		s.writeError(w, r, log.OpSelect, err)
		return
	}
	s.respondState(w, r, NewHTMXResponse())
}

// handleRecordExpense records an expense. Fields left out of the body fall
// back to the current form input.
func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}

	form := s.svc.Form()
	date := form.Date
	if p.Has("date") {
		d, err := core.ParseDate(p.Get("date"))
		if err != nil {
			s.writeError(w, r, log.OpRecord, err)
			return
		}
		date = d
	}
	amount := form.AmountText
	if p.Has("amount") {
		amount = p.Get("amount")
	}
	index, present, err := p.GetInt("index")
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}
	if !present {
		index = form.SelectedIndex
	}

	e, err := s.svc.RecordExpense(r.Context(), date, amount, index)
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}

	s.respondState(w, r, NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerExpenseRecorded(e.Category.String(), core.FormatAmount(e.Amount)).
		TriggerFormReset().
		TriggerCategoriesReordered(s.svc.RefreshMode()))
}

func (s *Server) handleDeleteExpenses(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	positions, err := p.GetPositions("positions")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}

	removed, err := s.svc.DeleteExpenses(r.Context(), positions)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}

	b := NewHTMXResponse()
	if removed > 0 {
		b.TriggerExpenseDeleted(removed).TriggerCategoriesReordered(s.svc.RefreshMode())
	}
	s.respondState(w, r, b)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseBody(w, r); !ok {
		return
	}
	pending, err := s.svc.RequestClear(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpClear, err)
		return
	}
	b := NewHTMXResponse()
	if pending {
		b.TriggerClearConfirm()
	}
	s.respondState(w, r, b)
}

func (s *Server) handleClearConfirm(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseBody(w, r); !ok {
		return
	}
	if err := s.svc.ConfirmClear(r.Context()); err != nil {
		s.writeError(w, r, log.OpClear, err)
		return
	}
	s.respondState(w, r, NewHTMXResponse().
		TriggerExpensesCleared().
		TriggerCategoriesReordered(s.svc.RefreshMode()))
}

func (s *Server) handleClearCancel(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseBody(w, r); !ok {
		return
	}
	s.svc.CancelClear()
	s.respondState(w, r, NewHTMXResponse())
}
