package crud

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/auth"
	"github.com/dennislaw/svd-console/internal/shared"
)

// maxExportPages bounds an export to maxExportPages*MaxLimit records.
const maxExportPages = 50

// exportLimiter allows ten exports per minute for each signed-in user.
func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(exportKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}

func exportKey(r *http.Request) (string, error) {
	if identity, ok := shared.IdentityFromContext(r.Context()); ok && identity.ID != "" {
		return "user:" + identity.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// WriteCSV serialises records using the resource columns.
func WriteCSV(w io.Writer, res Resource, records []apiclient.Record) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"ID"}
	for _, col := range res.Columns {
		header = append(header, col.Header())
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		line := append([]string{rec.ID()}, res.Cells(rec)...)
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// collect walks the pages matching state's search and filters.
func (h *Handler) collect(ctx context.Context, token string, state ListState) ([]apiclient.Record, error) {
	q := state.ListQuery()
	q.Limit = MaxLimit
	var out []apiclient.Record
	for n := 1; n <= maxExportPages; n++ {
		q.Page = n
		page, err := h.api.List(ctx, token, h.resource.Key, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) == 0 || n >= page.TotalPages {
			break
		}
	}
	return out, nil
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := ParseListState(h.resource, r.URL.Query(), h.pageSize)
	records, err := h.collect(ctx, shared.AccessTokenFromContext(ctx), state)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			auth.ExpireSession(w, r)
			return
		}
		h.logger.Error("export list", slog.String("resource", h.resource.Key), slog.Any("error", err))
		h.redirectWithFlash(w, r, state.URL(h.resource.Path()), shared.FlashError, "Export failed: "+shared.UserSafeMessage(err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.resource.Key+`.csv"`)
	if err := WriteCSV(w, h.resource, records); err != nil {
		h.logger.Error("write csv", slog.String("resource", h.resource.Key), slog.Any("error", err))
	}
}
