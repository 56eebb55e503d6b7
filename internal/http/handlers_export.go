package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// writeAttachment renders the export into memory first so a failure can
// still become an error response.
func (s *Server) writeAttachment(w http.ResponseWriter, r *http.Request, filename, contentType string,
	render func(ctx context.Context, userID uuid.UUID, w io.Writer) error) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	var buf bytes.Buffer
	if err := render(ctx, currentUser(r), &buf); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	s.writeAttachment(w, r, "expenses.csv", csvContentType, s.svc.Export.ExpensesCSV)
}

func (s *Server) handleExportInvestmentsCSV(w http.ResponseWriter, r *http.Request) {
	s.writeAttachment(w, r, "investments.csv", csvContentType, s.svc.Export.InvestmentsCSV)
}

func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	s.writeAttachment(w, r, "wealthtrack-export.xlsx", xlsxContentType, s.svc.Export.Workbook)
}

func (s *Server) handleExportComplete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	export, err := s.svc.Export.Complete(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, export)
}
