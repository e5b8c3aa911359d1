package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
)

const dateLayout = "2006-01-02"

type logResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Timestamp string `json:"timestamp"`
}

func toLogResponse(e domain.LogEntry) logResponse {
	return logResponse{
		ID:        e.ID,
		Username:  e.Username,
		Action:    e.Action,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Timestamp: formatTime(e.CreatedAt),
	}
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appID", msgAppNotFound)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	filter, err := parseLogFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	filter.ApplicationID = appID

	account := accountFromContext(r.Context())
	page, err := h.svc.Audit.Page(r.Context(), account.ID, filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	logs := make([]logResponse, 0, len(page.Entries))
	for _, e := range page.Entries {
		logs = append(logs, toLogResponse(e))
	}
	actions := page.Actions
	if actions == nil {
		actions = []string{}
	}
	writeSuccess(w, "", envelope{
		"logs":       logs,
		"total":      page.Total,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": page.TotalPages,
		"actions":    actions,
	})
}

func parseLogFilter(r *http.Request) (domain.LogFilter, error) {
	q := r.URL.Query()
	filter := domain.LogFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Action: strings.TrimSpace(q.Get("action")),
	}
	var err error
	if filter.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		return domain.LogFilter{}, err
	}
	if filter.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return domain.LogFilter{}, err
	}
	if raw := strings.TrimSpace(q.Get("dateFrom")); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.LogFilter{}, domain.Reject(domain.FailInvalid, "dateFrom must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(q.Get("dateTo")); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.LogFilter{}, domain.Reject(domain.FailInvalid, "dateTo must be YYYY-MM-DD")
		}
		// The whole day is included.
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}
	return filter, nil
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Reject(domain.FailInvalid, name+" must be integer")
	}
	return n, nil
}
