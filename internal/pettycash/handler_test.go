package pettycash_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	internal "github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/pettycash"
	"github.com/savannahq/pettycash/internal/user"
	"github.com/shopspring/decimal"
)

// Mock service for handler tests
type mockAccountService struct {
	account *pettycash.Account
	err     error
}

func (m *mockAccountService) CreateAccount(_ context.Context, dto pettycash.CreateAccountDTO, _ *user.Actor, _ string) (*pettycash.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}

func (m *mockAccountService) GetByID(_ context.Context, _ uuid.UUID) (*pettycash.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}

func (m *mockAccountService) ListActive(_ context.Context) ([]*pettycash.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*pettycash.Account{m.account}, nil
}

func (m *mockAccountService) UpdateAccount(_ context.Context, _ uuid.UUID, _ pettycash.UpdateAccountDTO, _ *user.Actor, _ string) (*pettycash.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}

func (m *mockAccountService) Deactivate(_ context.Context, _ uuid.UUID, _ *user.Actor, _ string) (*pettycash.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}

var _ = Describe("Account Handler", func() {
	var (
		handler *pettycash.Handler
		service *mockAccountService
		actor   *user.Actor
	)

	BeforeEach(func() {
		service = &mockAccountService{
			account: &pettycash.Account{
				ID:               uuid.New(),
				Name:             "Operations Float",
				CurrentBalance:   decimal.NewFromInt(100000),
				MinimumThreshold: decimal.NewFromInt(50000),
				IsActive:         true,
			},
		}
		handler = pettycash.NewHandler(service)
		actor = &user.Actor{ID: uuid.New(), Email: "admin@savannah.example"}
	})

	withActor := func(req *http.Request) *http.Request {
		return req.WithContext(user.ContextWithActor(req.Context(), actor))
	}

	Describe("CreateAccount", func() {
		It("should return 201 with the created account", func() {
			body, err := json.Marshal(pettycash.CreateAccountDTO{
				Name:             "Operations Float",
				PhoneNumber:      "+254700000001",
				MinimumThreshold: decimal.NewFromInt(50000),
			})
			Expect(err).NotTo(HaveOccurred())

			req := withActor(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body)))
			w := httptest.NewRecorder()

			handler.CreateAccount(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

			var response pettycash.Account
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Name).To(Equal("Operations Float"))
		})

		It("should return 401 without an actor in context", func() {
			req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader([]byte("{}")))
			w := httptest.NewRecorder()

			handler.CreateAccount(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should return 400 for a malformed body", func() {
			req := withActor(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader([]byte("{not json"))))
			w := httptest.NewRecorder()

			handler.CreateAccount(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should map the single-active-account conflict to 409", func() {
			service.err = internal.ErrActiveAccountExists

			body, err := json.Marshal(pettycash.CreateAccountDTO{
				Name:             "Second Float",
				PhoneNumber:      "+254700000002",
				MinimumThreshold: decimal.NewFromInt(10000),
			})
			Expect(err).NotTo(HaveOccurred())

			req := withActor(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body)))
			w := httptest.NewRecorder()

			handler.CreateAccount(w, req)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("ListAccounts", func() {
		It("should wrap the accounts in a JSON object", func() {
			req := withActor(httptest.NewRequest(http.MethodGet, "/accounts", nil))
			w := httptest.NewRecorder()

			handler.ListAccounts(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var response struct {
				Accounts []*pettycash.Account `json:"accounts"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Accounts).To(HaveLen(1))
		})
	})

	Describe("GetAccount", func() {
		It("should return 400 for a malformed id", func() {
			req := withActor(httptest.NewRequest(http.MethodGet, "/accounts/not-a-uuid", nil))
			w := httptest.NewRecorder()

			handler.GetAccount(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
