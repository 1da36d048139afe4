package checkin

import (
	"context"

	"go.uber.org/zap"

	"github.com/adf/settlement-engine/ledger"
)

// resolveStaff returns the staff id the check-in is recorded under.
//
// The requested id is used when it names an active user. Otherwise the
// active user with the lowest id is used and fallback is true. With no
// active user at all the id is nil and the check-in proceeds unattributed
// (no audit row, payment processed_by NULL).
func (s *Service) resolveStaff(ctx context.Context, requested *ledger.StaffID) (id *ledger.StaffID, fallback bool, err error) {
	if s.staff == nil {
		return nil, false, nil
	}
	if requested != nil && *requested > 0 {
		ok, err := s.staff.IsActiveStaff(ctx, *requested)
		if err != nil {
			return nil, false, err
		}
		if ok {
			v := *requested
			return &v, false, nil
		}
	}

	first, err := s.staff.FirstActiveStaff(ctx)
	if err != nil {
		return nil, false, err
	}

	fields := []zap.Field{zap.Int64p("requested_staff_id", (*int64)(requested))}
	if first == nil {
		s.log.Warn("no active staff, check-in will be unattributed", fields...)
		return nil, false, nil
	}
	s.log.Warn("staff id not resolved, using first active user",
		append(fields, zap.Int64("staff_id", int64(*first)))...)
	return first, true, nil
}
