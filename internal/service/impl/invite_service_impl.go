package impl

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
	"cardauth/internal/events"
	"cardauth/internal/observability/metrics"
	"cardauth/internal/observability/middleware"
	"cardauth/internal/store"
)

// maxCodeAttempts bounds code generation retries on collision. Hitting it
// means the generator is broken, not that the code space is used up.
const maxCodeAttempts = 10

// InviteServiceImpl is the invite ledger: it issues codes under a per-issuer
// quota and consumes them exactly once.
type InviteServiceImpl struct {
	store  *store.Store
	events events.Publisher
	now    func() time.Time
	gen    func() (string, error)
}

func NewInviteServiceImpl(st *store.Store, pub events.Publisher) *InviteServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &InviteServiceImpl{
		store:  st,
		events: pub,
		now:    func() time.Time { return time.Now().UTC() },
		gen:    GenerateInviteCode,
	}
}

// GenerateInviteCode draws domain.InviteCodeLength characters uniformly from
// domain.InviteCodeAlphabet.
func GenerateInviteCode() (string, error) {
	var b strings.Builder
	b.Grow(domain.InviteCodeLength)
	max := big.NewInt(int64(len(domain.InviteCodeAlphabet)))
	for i := 0; i < domain.InviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(domain.InviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeInviteCode uppercases and trims user input before lookups.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type quota struct {
	unlimited bool
	limit     int
	used      int64
}

func (q quota) remaining() int {
	r := int64(q.limit) - q.used
	if r < 0 {
		return 0
	}
	return int(r)
}

// quotaFor computes the issuer's quota. With lock set the issuer row stays
// locked for the rest of tx, which serializes concurrent creates by one
// issuer between the count and the insert.
func (s *InviteServiceImpl) quotaFor(ctx context.Context, tx *store.Store, issuer domain.UserID, lock bool) (quota, error) {
	var (
		user *domain.User
		err  error
	)
	if lock {
		user, err = tx.Users().GetByIDForUpdate(ctx, issuer)
	} else {
		user, err = tx.Users().GetByID(ctx, issuer)
	}
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return quota{}, domain.ErrNotFound
		}
		return quota{}, err
	}
	count, err := tx.Invites().CountByIssuer(ctx, issuer)
	if err != nil {
		return quota{}, err
	}
	if user.UnlimitedInvites {
		return quota{unlimited: true, used: count}, nil
	}
	limit, err := tx.Settings().GetInt(ctx, domain.SettingInviteLimit, domain.DefaultInviteLimit)
	if err != nil {
		return quota{}, err
	}
	return quota{limit: limit, used: count}, nil
}

func (s *InviteServiceImpl) Create(ctx context.Context, issuer domain.UserID) (out *dto.InviteCreated, err error) {
	defer func() { metrics.InviteCodesTotal.WithLabelValues("create", metrics.Result(err)).Inc() }()
	if s.store == nil {
		return nil, ErrNilStore
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		q, err := s.quotaFor(ctx, tx, issuer, true)
		if err != nil {
			return err
		}
		if !q.unlimited && q.used >= int64(q.limit) {
			return domain.ErrQuotaExceeded
		}

		now := s.now()
		expires := now.Add(domain.InviteCodeTTL)
		for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
			code, err := s.gen()
			if err != nil {
				return err
			}
			c := &domain.InviteCode{
				Code:            code,
				CreatedByUserID: issuer,
				ExpiresAt:       &expires,
				CreatedAt:       now,
			}
			// Savepoint per attempt: postgres aborts the whole transaction on a
			// unique violation otherwise.
			err = tx.WithTx(ctx, func(sp *store.Store) error {
				return sp.Invites().Create(ctx, c)
			})
			if errors.Is(err, store.ErrDuplicate) {
				slog.WarnContext(ctx, "invite code collision", "attempt", attempt, "request_id", middleware.RequestIDFromContext(ctx))
				continue
			}
			if err != nil {
				return err
			}

			q.used++
			out = &dto.InviteCreated{
				InviteCode: dto.NewInviteCodeResponse(c),
				Unlimited:  q.unlimited,
			}
			if !q.unlimited {
				r := q.remaining()
				out.Remaining = &r
			}
			return nil
		}
		return domain.ErrCodeGenerationExhausted
	})
	if err != nil {
		if errors.Is(err, domain.ErrCodeGenerationExhausted) {
			slog.ErrorContext(ctx, "invite code generation exhausted", "issuer_id", issuer, "attempts", maxCodeAttempts)
		}
		return nil, err
	}

	s.events.Publish(ctx, events.InviteCreated{
		Code:     events.MaskCode(out.InviteCode.Code),
		IssuerID: strconv.FormatInt(issuer, 10),
		At:       s.now(),
	})
	return out, nil
}

// Validate is read-only; a valid code stays unconsumed.
func (s *InviteServiceImpl) Validate(ctx context.Context, code string) (err error) {
	defer func() { metrics.InviteCodesTotal.WithLabelValues("validate", metrics.Result(err)).Inc() }()
	if s.store == nil {
		return ErrNilStore
	}
	return s.validate(ctx, s.store, code)
}

func (s *InviteServiceImpl) validate(ctx context.Context, st *store.Store, code string) error {
	code = NormalizeInviteCode(code)
	if code == "" {
		return domain.ErrInvalidOrExpiredCode
	}
	c, err := st.Invites().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrInvalidOrExpiredCode
		}
		return err
	}
	if !c.Redeemable(s.now()) {
		return domain.ErrInvalidOrExpiredCode
	}
	return nil
}

func (s *InviteServiceImpl) Consume(ctx context.Context, code string, userID domain.UserID) (err error) {
	if s.store == nil {
		return ErrNilStore
	}
	if err := s.consume(ctx, s.store, code, userID); err != nil {
		return err
	}
	s.publishConsumed(ctx, code, userID)
	return nil
}

// consume marks the code used inside the caller's transaction. The validity
// predicate is re-evaluated by the UPDATE itself, so of two concurrent
// consumers only one sees an affected row.
func (s *InviteServiceImpl) consume(ctx context.Context, tx *store.Store, code string, userID domain.UserID) (err error) {
	defer func() { metrics.InviteCodesTotal.WithLabelValues("consume", metrics.Result(err)).Inc() }()
	code = NormalizeInviteCode(code)
	if code == "" {
		return domain.ErrMissingInvite
	}
	ok, err := tx.Invites().MarkUsed(ctx, code, userID, s.now())
	if err != nil {
		return fmt.Errorf("consume invite code: %w", err)
	}
	if !ok {
		return domain.ErrInvalidOrExpiredCode
	}
	return nil
}

func (s *InviteServiceImpl) publishConsumed(ctx context.Context, code string, userID domain.UserID) {
	s.events.Publish(ctx, events.InviteConsumed{
		Code:   events.MaskCode(NormalizeInviteCode(code)),
		UserID: strconv.FormatInt(userID, 10),
		At:     s.now(),
	})
}

func (s *InviteServiceImpl) ListByIssuer(ctx context.Context, issuer domain.UserID) (*dto.InviteList, error) {
	if s.store == nil {
		return nil, ErrNilStore
	}
	q, err := s.quotaFor(ctx, s.store, issuer, false)
	if err != nil {
		return nil, err
	}
	codes, err := s.store.Invites().ListByIssuer(ctx, issuer)
	if err != nil {
		return nil, err
	}

	out := &dto.InviteList{
		Codes:     make([]dto.InviteCodeResponse, 0, len(codes)),
		Unlimited: q.unlimited,
	}
	for i := range codes {
		out.Codes = append(out.Codes, dto.NewInviteCodeResponse(&codes[i]))
	}
	if !q.unlimited {
		limit, remaining := q.limit, q.remaining()
		out.Limit = &limit
		out.Remaining = &remaining
	}
	return out, nil
}
