package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
	"github.com/goran-ethernal/ReputationIndexor/internal/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// IngestStatus reports the ingestion driver's processing state to the health
// endpoint.
type IngestStatus interface {
	State() string
}

// Handler handles HTTP requests for the read API. All endpoints serve the
// latest committed state; ingestion failures never surface here.
type Handler struct {
	store  *store.Store
	ingest IngestStatus
	log    *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(entityStore *store.Store, ingest IngestStatus, log *logger.Logger) *Handler {
	return &Handler{
		store:  entityStore,
		ingest: ingest,
		log:    log,
	}
}

// GetOwner returns the aggregate record of one owner.
// @Summary Get owner
// @Description Get the aggregate activity record and reputation score of an address
// @Tags Owners
// @Produce json
// @Param address path string true "Owner address (hex)"
// @Success 200 {object} OwnerResponse "Owner aggregate"
// @Failure 400 {object} ErrorResponse "Invalid address"
// @Failure 404 {object} ErrorResponse "Owner not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /owners/{address} [get]
func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, r)
	if !ok {
		return
	}

	owner, err := h.store.GetOwner(addr)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("owner '%s' not found", r.PathValue("address")))
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load owner: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load owner")
		return
	}

	respondJSON(w, http.StatusOK, newOwnerResponse(owner))
}

// GetDomain returns one registered domain.
// @Summary Get domain
// @Description Get a registered domain by its fully-qualified name
// @Tags Domains
// @Produce json
// @Param name path string true "Domain name"
// @Success 200 {object} DomainResponse "Domain record"
// @Failure 404 {object} ErrorResponse "Domain not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /domains/{name} [get]
func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "domain name is required")
		return
	}

	domain, err := h.store.GetDomain(name)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("domain '%s' not found", name))
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load domain: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load domain")
		return
	}

	respondJSON(w, http.StatusOK, newDomainResponse(domain))
}

// ListTransactions returns the time-ordered ledger of one owner.
// @Summary List owner transactions
// @Description List the processed-event ledger rows of an owner, ordered by time
// @Tags Owners
// @Produce json
// @Param address path string true "Owner address (hex)"
// @Param limit query int false "Maximum number of rows to return" default(100)
// @Param offset query int false "Number of rows to skip" default(0)
// @Success 200 {object} TransactionsResponse "Ledger rows with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /owners/{address}/transactions [get]
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, r)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	txns, err := h.store.ListTransactions(addr, limit, offset)
	if err != nil {
		h.log.Errorf("Failed to list transactions: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	total, err := h.store.CountTransactions(addr)
	if err != nil {
		h.log.Errorf("Failed to count transactions: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	items := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		items = append(items, newTransactionResponse(txn))
	}

	respondJSON(w, http.StatusOK, TransactionsResponse{
		Transactions: items,
		Pagination: PaginationResult{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
		},
	})
}

// ListScoreHistory returns the score-over-time curve of one owner.
// @Summary List owner score history
// @Description List the score snapshots of an owner within an optional time window, ordered by time
// @Tags Owners
// @Produce json
// @Param address path string true "Owner address (hex)"
// @Param from_time query integer false "Window start as Unix timestamp (inclusive)"
// @Param to_time query integer false "Window end as Unix timestamp (inclusive)"
// @Success 200 {object} ScoreHistoryResponse "Score snapshots"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /owners/{address}/score-history [get]
func (h *Handler) ListScoreHistory(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, r)
	if !ok {
		return
	}

	fromTime, err := parseInt64Param(r, "from_time")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	toTime, err := parseInt64Param(r, "to_time")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if toTime > 0 && fromTime > toTime {
		respondError(w, http.StatusBadRequest, "'from_time' cannot be greater than 'to_time'")
		return
	}

	snaps, err := h.store.ListScoreHistory(addr, fromTime, toTime)
	if err != nil {
		h.log.Errorf("Failed to list score history: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list score history")
		return
	}

	items := make([]ScoreSnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		items = append(items, newScoreSnapshotResponse(snap))
	}

	respondJSON(w, http.StatusOK, ScoreHistoryResponse{History: items})
}

// GetLeaderboard returns owners ordered by reputation score.
// @Summary Get leaderboard
// @Description List owners ordered by reputation score. Zero-activity owners are excluded unless include_zero is set
// @Tags Leaderboard
// @Produce json
// @Param limit query int false "Maximum number of owners to return" default(100)
// @Param offset query int false "Number of owners to skip" default(0)
// @Param include_zero query bool false "Include owners with no observed activity" default(false)
// @Success 200 {object} LeaderboardResponse "Owners with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /leaderboard [get]
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	includeZero := false
	if raw := r.URL.Query().Get("include_zero"); raw != "" {
		includeZero, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid include_zero: must be a boolean")
			return
		}
	}

	owners, err := h.store.Leaderboard(limit, offset, includeZero)
	if err != nil {
		h.log.Errorf("Failed to query leaderboard: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query leaderboard")
		return
	}

	total, err := h.store.CountOwners(includeZero)
	if err != nil {
		h.log.Errorf("Failed to count owners: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query leaderboard")
		return
	}

	items := make([]OwnerResponse, 0, len(owners))
	for _, owner := range owners {
		items = append(items, newOwnerResponse(owner))
	}

	respondJSON(w, http.StatusOK, LeaderboardResponse{
		Owners: items,
		Pagination: PaginationResult{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
		},
	})
}

// GetStats returns store-wide counters.
// @Summary Get indexer statistics
// @Description Get store-wide entity counts and the committed feed position
// @Tags Stats
// @Produce json
// @Success 200 {object} store.Stats "Store statistics"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats()
	if err != nil {
		h.log.Errorf("Failed to gather stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Health returns the health status of the API and the ingestion driver.
// @Summary Health check
// @Description Check the health of the service and report ingestion progress
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service health"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}

	if h.ingest != nil {
		response.IngestState = h.ingest.State()
	}

	cursor, err := h.store.GetCursor()
	if err == nil {
		response.LastBlock = cursor.LastBlock
		response.LastLogIndex = cursor.LastLogIndex
	} else {
		response.Status = "degraded"
	}

	respondJSON(w, http.StatusOK, response)
}

// parseAddress extracts and validates the address path parameter, responding
// with an error itself when the address is invalid.
func parseAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := r.PathValue("address")
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("'%s' is not a valid hex address", raw))
		return common.Address{}, false
	}

	return common.HexToAddress(raw), true
}

// parsePagination parses the limit/offset query parameters.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultLimit

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, fmt.Errorf("invalid limit: must be between 1 and %d", maxLimit)
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset: must be non-negative")
		}
	}

	return limit, offset, nil
}

// parseInt64Param parses an optional non-negative integer query parameter.
func parseInt64Param(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative Unix timestamp", name)
	}

	return value, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode JSON first to catch any errors before writing status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	// Only write status after successful encoding
	w.WriteHeader(status)

	if _, err := w.Write(encoded); err != nil {
		// Headers already sent, the partial response may have reached the client
		return
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
