package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	"library-backend/internal/ledger/ledgertest"
	"library-backend/internal/ledger/memory"
	"library-backend/pkg/container"
)

func init() {
	gin.SetMode(gin.TestMode)
	binding.EnableDecoderDisallowUnknownFields = true
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	clock  *ledgertest.Clock
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{Environment: "test", Version: "test", StoreDriver: config.StoreDriverMemory},
		Policy: config.DefaultPolicy(),
	}
	clock := ledgertest.NewClock(ledgertest.Epoch)
	c := container.NewWithStore(cfg, memory.NewStore(), nil,
		container.WithRegisterer(prometheus.NewRegistry()),
		container.WithClock(clock.Now),
	)
	return &api{t: t, router: SetupRouter(c), clock: clock}
}

func (a *api) do(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

// create POSTs body and returns the id of the created entity
func (a *api) create(path string, body any) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, code, "POST %s: %+v", path, env.Error)
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(a.t, out.ID)
	return out.ID
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type seeded struct {
	branch, item, copy, patron string
}

func (a *api) seed() seeded {
	var s seeded
	s.branch = a.create("/api/v1/branches", map[string]any{"name": "Central", "is_main": true})
	s.item = a.create("/api/v1/catalog-items", map[string]any{"title": "Dune", "type": "book"})
	s.copy = a.create("/api/v1/copies", map[string]any{"catalog_item_id": s.item, "owning_branch_id": s.branch})
	s.patron = a.create("/api/v1/patrons", map[string]any{"name": "Ada", "email": "ada@example.org"})
	return s
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, code)
	health := decode[map[string]string](t, env)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "memory", health["store"])
	assert.Equal(t, "disabled", health["redis"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ROUTE_NOT_FOUND", env.Error.Code)

	code, env = a.do(http.MethodPatch, "/api/v1/branches", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
}

func TestRequestRejections(t *testing.T) {
	a := newAPI(t)

	t.Run("unknown field", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/branches", `{"name":"X","colour":"red"}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "INVALID_JSON", env.Error.Code)
	})

	t.Run("validation", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/api/v1/catalog-items", map[string]any{"title": "", "type": "book"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/api/v1/copies/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "INVALID_ID", env.Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/api/v1/patrons/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "PATRON_NOT_FOUND", env.Error.Code)
	})
}

func TestCirculationFlow(t *testing.T) {
	a := newAPI(t)
	s := a.seed()

	code, env := a.do(http.MethodPost, "/api/v1/transactions/checkout", map[string]any{"patron_id": s.patron, "copy_id": s.copy})
	require.Equal(t, http.StatusCreated, code, "%+v", env.Error)
	loan := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	assert.Equal(t, "active", loan.Status)

	other := a.create("/api/v1/patrons", map[string]any{"name": "Grace"})

	// conflicts surface as 400
	code, env = a.do(http.MethodPost, "/api/v1/transactions/checkout", map[string]any{"patron_id": other, "copy_id": s.copy})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "COPY_NOT_AVAILABLE", env.Error.Code)

	code, env = a.do(http.MethodPost, "/api/v1/reservations", map[string]any{"library_item_id": s.item, "patron_id": other})
	require.Equal(t, http.StatusCreated, code, "%+v", env.Error)
	hold := decode[struct {
		ID            string `json:"id"`
		QueuePosition int    `json:"queue_position"`
	}](t, env)
	assert.Equal(t, 1, hold.QueuePosition)

	code, env = a.do(http.MethodPut, "/api/v1/transactions/"+loan.ID+"/renew", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PENDING_RESERVATIONS", env.Error.Code)

	code, env = a.do(http.MethodGet, "/api/v1/catalog-items/"+s.item+"/reservations", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	a.clock.Advance(17 * 24 * time.Hour) // three days past the 14 day loan
	code, env = a.do(http.MethodPost, "/api/v1/transactions/checkin", map[string]any{"copy_id": s.copy})
	require.Equal(t, http.StatusOK, code, "%+v", env.Error)
	checkin := decode[struct {
		FineAmount  string `json:"fine_amount"`
		DaysOverdue int    `json:"days_overdue"`
	}](t, env)
	assert.Equal(t, 3, checkin.DaysOverdue)
	assert.Equal(t, "1.5", checkin.FineAmount)

	code, env = a.do(http.MethodGet, "/api/v1/patrons/"+s.patron+"/fines", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	code, env = a.do(http.MethodPut, "/api/v1/reservations/"+hold.ID+"/fulfill", nil)
	require.Equal(t, http.StatusOK, code, "%+v", env.Error)

	code, env = a.do(http.MethodGet, "/api/v1/copies/"+s.copy, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reserved", decode[struct {
		Status string `json:"status"`
	}](t, env).Status)

	// the earmarked copy goes only to the holder
	code, env = a.do(http.MethodPost, "/api/v1/transactions/checkout", map[string]any{"patron_id": s.patron, "copy_id": s.copy})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "COPY_HELD_FOR_OTHER_PATRON", env.Error.Code)

	code, _ = a.do(http.MethodPost, "/api/v1/transactions/checkout", map[string]any{"patron_id": other, "copy_id": s.copy})
	assert.Equal(t, http.StatusCreated, code)
}

type fineResult struct {
	Fine struct {
		ID     string `json:"id"`
		IsPaid bool   `json:"is_paid"`
	} `json:"fine"`
	PatronBalance string `json:"patron_balance"`
}

func TestFineEndpoints(t *testing.T) {
	a := newAPI(t)
	s := a.seed()

	code, env := a.do(http.MethodPost, "/api/v1/fines", map[string]any{"patron_id": s.patron, "amount": "4.25", "reason": "damaged cover"})
	require.Equal(t, http.StatusCreated, code, "%+v", env.Error)
	created := decode[fineResult](t, env)
	require.NotEmpty(t, created.Fine.ID)
	assert.Equal(t, "4.25", created.PatronBalance)
	fineID := created.Fine.ID

	code, env = a.do(http.MethodGet, "/api/v1/patrons/"+s.patron, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "4.25", decode[struct {
		Balance string `json:"balance"`
	}](t, env).Balance)

	code, env = a.do(http.MethodPut, "/api/v1/fines/"+fineID+"/pay", map[string]any{"payment_method": "cash"})
	require.Equal(t, http.StatusOK, code)
	paid := decode[fineResult](t, env)
	assert.True(t, paid.Fine.IsPaid)
	assert.Equal(t, "0", paid.PatronBalance)

	code, env = a.do(http.MethodPut, "/api/v1/fines/"+fineID+"/pay", map[string]any{"payment_method": "cash"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "FINE_ALREADY_PAID", env.Error.Code)

	code, env = a.do(http.MethodDelete, "/api/v1/fines/"+fineID, nil)
	require.Equal(t, http.StatusOK, code)
	deleted := decode[struct {
		BalanceChange string `json:"balance_change"`
		PatronBalance string `json:"patron_balance"`
	}](t, env)
	assert.Equal(t, "0", deleted.BalanceChange)
	assert.Equal(t, "0", deleted.PatronBalance)

	// an unpaid fine comes back out of the balance on delete
	code, env = a.do(http.MethodPost, "/api/v1/fines", map[string]any{"patron_id": s.patron, "amount": "2.00", "reason": "late"})
	require.Equal(t, http.StatusCreated, code)
	unpaid := decode[fineResult](t, env)
	assert.Equal(t, "2", unpaid.PatronBalance)

	code, env = a.do(http.MethodDelete, "/api/v1/fines/"+unpaid.Fine.ID, nil)
	require.Equal(t, http.StatusOK, code)
	deleted = decode[struct {
		BalanceChange string `json:"balance_change"`
		PatronBalance string `json:"patron_balance"`
	}](t, env)
	assert.Equal(t, "-2", deleted.BalanceChange)
	assert.Equal(t, "0", deleted.PatronBalance)

	code, env = a.do(http.MethodGet, "/api/v1/patrons/"+s.patron, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", decode[struct {
		Balance string `json:"balance"`
	}](t, env).Balance)
}

func TestFineAmountBeyondCentsRejected(t *testing.T) {
	a := newAPI(t)
	s := a.seed()

	code, env := a.do(http.MethodPost, "/api/v1/fines", map[string]any{"patron_id": s.patron, "amount": "0.004", "reason": "rounding"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}
