package projection

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	httperr "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/stats"
	"github.com/Fulvio75/fpdb/internal/core/storage"
	projectionmocks "github.com/Fulvio75/fpdb/internal/mocks/projection"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_HandleHudStats_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedType   string
		configure      func(store *projectionmocks.Store)
	}{
		{
			name:           "non numeric hand id returns 400",
			path:           "/v1/hud/hands/abc",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidParamError,
			configure:      func(_ *projectionmocks.Store) {},
		},
		{
			name:           "unknown range returns 400",
			path:           "/v1/hud/hands/9?range=Q",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidParamError,
			configure:      func(_ *projectionmocks.Store) {},
		},
		{
			name:           "malformed days returns 400",
			path:           "/v1/hud/hands/9?days=many",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidParamError,
			configure:      func(_ *projectionmocks.Store) {},
		},
		{
			name:           "missing hand returns 404",
			path:           "/v1/hud/hands/9",
			expectedStatus: http.StatusNotFound,
			expectedType:   httperr.HttpNotFoundError,
			configure: func(store *projectionmocks.Store) {
				store.EXPECT().HudHand(mock.Anything, int64(9)).Return(storage.HudHand{}, storage.ErrNotFound).Once()
			},
		},
		{
			name:           "store error returns 500",
			path:           "/v1/hud/hands/9",
			expectedStatus: http.StatusInternalServerError,
			expectedType:   httperr.HttpInternalError,
			configure: func(store *projectionmocks.Store) {
				store.EXPECT().HudHand(mock.Anything, int64(9)).Return(storage.HudHand{}, errors.New("db down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := projectionmocks.NewStore(t)
			tt.configure(store)

			svc := NewService(store, defaultParams(), 16, 0)
			r := gin.New()
			svc.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			require.Equal(t, tt.expectedStatus, resp.Code)
			var errResp httperr.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
			require.Equal(t, tt.expectedType, errResp.ErrorType)
		})
	}
}

func TestService_HandleHudStats_QueryOverridesDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := projectionmocks.NewStore(t)
	store.EXPECT().HudHand(mock.Anything, int64(9)).Return(hudHand(), nil).Once()
	store.EXPECT().
		HudTotals(mock.Anything, mock.MatchedBy(func(q storage.HudQuery) bool {
			return q.MinSeats == 2 && q.MaxSeats == 6
		})).
		Return(map[int64]stats.Vector{}, nil).
		Twice()

	svc := NewService(store, defaultParams(), 16, 0)
	r := gin.New()
	svc.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/v1/hud/hands/9?seats=C&seatsMin=2&seatsMax=6", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body HudResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, int64(9), body.HandID)
	require.Len(t, body.Players, 2)
	require.Equal(t, "hero", body.Players[0].Name)
}
