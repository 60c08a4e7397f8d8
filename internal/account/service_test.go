package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/mail"
	"github.com/MaxRadzey/api-yamdb/internal/store"
	"github.com/MaxRadzey/api-yamdb/internal/store/storetest"
	"github.com/MaxRadzey/api-yamdb/pkg/auth"
)

// outbox запоминает отправленные письма
type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (o *outbox) Send(ctx context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) last(t *testing.T) mail.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		t.Fatal("no message was sent")
	}
	return o.msgs[len(o.msgs)-1]
}

func newService(t *testing.T) (*Service, *outbox, *storetest.Stores) {
	t.Helper()
	stores := storetest.NewStores(t)
	tokens, err := auth.NewTokenManager("account-test-secret-account-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	box := &outbox{}
	return NewService(stores.Users, box, tokens, storetest.Logger()), box, stores
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if vErr.Field != field {
		t.Errorf("field = %q, want %q", vErr.Field, field)
	}
}

func TestSignUpAndExchange(t *testing.T) {
	svc, box, _ := newService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
	msg := box.last(t)
	if msg.To != "alice@example.com" || len(msg.Code) != auth.CodeLength {
		t.Fatalf("unexpected message %+v", msg)
	}

	if _, err := svc.ExchangeToken(ctx, "alice", "WRONG1"); err == nil {
		t.Fatal("wrong code must be rejected")
	} else {
		assertValidation(t, err, "confirmation_code")
	}

	token, err := svc.ExchangeToken(ctx, "alice", msg.Code)
	if err != nil {
		t.Fatalf("ExchangeToken: %v", err)
	}
	got, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate returned user %d, want %d", got.ID, user.ID)
	}

	if _, err := svc.ExchangeToken(ctx, "alice", msg.Code); err == nil {
		t.Error("code must be single use")
	}
}

func TestSignUpResendsCodeForSamePair(t *testing.T) {
	svc, box, _ := newService(t)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, "bob", "bob@example.com")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	firstCode := box.last(t).Code

	second, err := svc.SignUp(ctx, "bob", "bob@example.com")
	if err != nil {
		t.Fatalf("repeated SignUp: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("repeated signup created a new account")
	}
	secondCode := box.last(t).Code

	if firstCode != secondCode {
		if _, err := svc.ExchangeToken(ctx, "bob", firstCode); err == nil {
			t.Error("previous code must be invalidated by a new one")
		}
	}
	if _, err := svc.ExchangeToken(ctx, "bob", secondCode); err != nil {
		t.Errorf("latest code must work: %v", err)
	}
}

func TestSignUpCrossCheck(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "carol", "carol@example.com"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	_, err := svc.SignUp(ctx, "mallory", "carol@example.com")
	assertValidation(t, err, "email")

	_, err = svc.SignUp(ctx, "carol", "other@example.com")
	assertValidation(t, err, "username")
}

func TestSignUpReservedUsername(t *testing.T) {
	svc, box, _ := newService(t)
	for _, name := range []string{"me", "Me", "ME"} {
		_, err := svc.SignUp(context.Background(), name, "me@example.com")
		assertValidation(t, err, "username")
	}
	if len(box.msgs) != 0 {
		t.Error("no code must be sent for a rejected signup")
	}
}

func TestExchangeTokenUnknownUser(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.ExchangeToken(context.Background(), "ghost", "ABC234"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestSignUpMailFailure(t *testing.T) {
	svc, box, _ := newService(t)
	box.err = mail.ErrMailUnavailable
	if _, err := svc.SignUp(context.Background(), "dave", "dave@example.com"); !errors.Is(err, mail.ErrMailUnavailable) {
		t.Errorf("got %v, want ErrMailUnavailable", err)
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	svc, box, stores := newService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "erin", "erin@example.com"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	token, err := svc.ExchangeToken(ctx, "erin", box.last(t).Code)
	if err != nil {
		t.Fatalf("ExchangeToken: %v", err)
	}
	err = stores.Reviews.WithTx(ctx, func(tx store.ReviewTx) error {
		_, err := tx.DeleteUser(ctx, "erin")
		return err
	})
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}
