package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/signal"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

// Sortable column keys. These match the table headers the front end
// sends back.
const (
	SortEmail        = "email"
	SortStatus       = "status"
	SortIsAdmin      = "isAdmin"
	SortDateCreated  = "dateCreated"
	SortLastAccessed = "lastAccessed"
)

// Console holds one admin session's working copy of all approval
// records, fetched once on first use. Mutations write through the
// gateway and patch the copy optimistically; a failed write restores
// the previous value so the table never silently diverges from the
// store.
type Console struct {
	gw      store.Gateway
	refresh *signal.Broadcaster

	mu      sync.Mutex
	loaded  bool
	records []models.ApprovalRecord

	searchTerm string
	sortKey    string
	sortAsc    bool
	page       int
}

func NewConsole(gw store.Gateway, refresh *signal.Broadcaster) *Console {
	return &Console{
		gw:      gw,
		refresh: refresh,
		sortKey: SortEmail,
		sortAsc: true,
		page:    1,
	}
}

// Load fetches the snapshot on first call; later calls are no-ops.
func (con *Console) Load(ctx context.Context) error {
	con.mu.Lock()
	loaded := con.loaded
	con.mu.Unlock()
	if loaded {
		return nil
	}
	return con.Reload(ctx)
}

func (con *Console) Reload(ctx context.Context) error {
	records, err := con.gw.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	con.mu.Lock()
	con.records = records
	con.loaded = true
	con.mu.Unlock()
	return nil
}

// SetSearch resets to page 1, matching what a changed term means for
// the visible slice.
func (con *Console) SetSearch(term string) {
	con.mu.Lock()
	defer con.mu.Unlock()
	if term == con.searchTerm {
		return
	}
	con.searchTerm = term
	con.page = 1
}

// SortBy toggles direction when the key is already active, otherwise
// switches to the new key ascending.
func (con *Console) SortBy(key string) error {
	switch key {
	case SortEmail, SortStatus, SortIsAdmin, SortDateCreated, SortLastAccessed:
	default:
		return fmt.Errorf("unknown sort key %q", key)
	}

	con.mu.Lock()
	defer con.mu.Unlock()
	if con.sortKey == key {
		con.sortAsc = !con.sortAsc
	} else {
		con.sortKey = key
		con.sortAsc = true
	}
	return nil
}

func (con *Console) SetPage(page int) {
	con.mu.Lock()
	defer con.mu.Unlock()
	con.page = page
}

// PageView is one rendered table page.
type PageView struct {
	Records    []models.ApprovalRecord `json:"records"`
	Page       int                     `json:"page"`
	TotalPages int                     `json:"total_pages"`
	Total      int                     `json:"total"`
	Search     string                  `json:"search"`
	SortKey    string                  `json:"sort_key"`
	SortAsc    bool                    `json:"sort_asc"`
}

// View recomputes filter, sort, and pagination over the snapshot. The
// page index is clamped into the filtered range.
func (con *Console) View() PageView {
	con.mu.Lock()
	defer con.mu.Unlock()

	filtered := filterRecords(con.records, con.searchTerm)
	sortRecords(filtered, con.sortKey, con.sortAsc)

	totalPages := (len(filtered) + constants.AdminPageSize - 1) / constants.AdminPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if con.page < 1 {
		con.page = 1
	}
	if con.page > totalPages {
		con.page = totalPages
	}

	start := (con.page - 1) * constants.AdminPageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + constants.AdminPageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return PageView{
		Records:    filtered[start:end],
		Page:       con.page,
		TotalPages: totalPages,
		Total:      len(filtered),
		Search:     con.searchTerm,
		SortKey:    con.sortKey,
		SortAsc:    con.sortAsc,
	}
}

// SetStatus writes through the gateway with an optimistic local patch,
// restoring the previous value if the write fails. Success broadcasts
// the refresh signal so other open views re-check their state.
func (con *Console) SetStatus(ctx context.Context, email string, status models.Status) error {
	prev, found := con.patch(email, func(rec *models.ApprovalRecord) { rec.Status = status })
	if err := con.gw.SetStatus(ctx, email, status); err != nil {
		if found {
			con.restore(prev)
		}
		return err
	}
	con.refresh.Broadcast()
	return nil
}

func (con *Console) SetAdminRole(ctx context.Context, email string, isAdmin bool) error {
	prev, found := con.patch(email, func(rec *models.ApprovalRecord) { rec.IsAdmin = isAdmin })
	if err := con.gw.SetAdminRole(ctx, email, isAdmin); err != nil {
		if found {
			con.restore(prev)
		}
		return err
	}
	con.refresh.Broadcast()
	return nil
}

func (con *Console) SetChatAllowance(ctx context.Context, email string, allowance int) error {
	prev, found := con.patch(email, func(rec *models.ApprovalRecord) { rec.ChatAllowance = allowance })
	if err := con.gw.SetChatAllowance(ctx, email, allowance); err != nil {
		if found {
			con.restore(prev)
		}
		return err
	}
	return nil
}

// Remove drops the record locally and through the gateway; a failed
// delete puts the record back.
func (con *Console) Remove(ctx context.Context, email string) error {
	con.mu.Lock()
	var removed *models.ApprovalRecord
	for i, rec := range con.records {
		if rec.Email == email {
			r := rec
			removed = &r
			con.records = append(con.records[:i], con.records[i+1:]...)
			break
		}
	}
	con.mu.Unlock()

	if err := con.gw.Remove(ctx, email); err != nil {
		if removed != nil {
			con.restore(*removed)
		}
		return err
	}
	return nil
}

// patch applies mutate to the local copy of email's record, returning
// the record's previous value for rollback.
func (con *Console) patch(email string, mutate func(*models.ApprovalRecord)) (models.ApprovalRecord, bool) {
	con.mu.Lock()
	defer con.mu.Unlock()
	for i := range con.records {
		if con.records[i].Email == email {
			prev := con.records[i]
			mutate(&con.records[i])
			return prev, true
		}
	}
	return models.ApprovalRecord{}, false
}

func (con *Console) restore(prev models.ApprovalRecord) {
	con.mu.Lock()
	defer con.mu.Unlock()
	for i := range con.records {
		if con.records[i].Email == prev.Email {
			con.records[i] = prev
			return
		}
	}
	con.records = append(con.records, prev)
}

// filterRecords keeps records whose email or status contains the term,
// case-insensitively.
func filterRecords(records []models.ApprovalRecord, term string) []models.ApprovalRecord {
	out := make([]models.ApprovalRecord, 0, len(records))
	lowered := strings.ToLower(term)
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Email), lowered) ||
			strings.Contains(strings.ToLower(string(rec.Status)), lowered) {
			out = append(out, rec)
		}
	}
	return out
}

func sortRecords(records []models.ApprovalRecord, key string, asc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		cmp := compareRecords(records[i], records[j], key)
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})
}

func compareRecords(a, b models.ApprovalRecord, key string) int {
	switch key {
	case SortDateCreated:
		return compareInstants(a.DateCreated, b.DateCreated)
	case SortLastAccessed:
		return compareInstants(a.LastAccessed, b.LastAccessed)
	case SortStatus:
		return strings.Compare(strings.ToLower(string(a.Status)), strings.ToLower(string(b.Status)))
	case SortIsAdmin:
		return strings.Compare(boolString(a.IsAdmin), boolString(b.IsAdmin))
	default:
		return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	}
}

// compareInstants orders by numeric instant, with a missing timestamp
// sorting as the earliest possible value.
func compareInstants(a, b time.Time) int {
	av, bv := instant(a), instant(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

func instant(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
