package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/complaint-desk-api/internal/dto"
	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
	"github.com/campushub/complaint-desk-api/pkg/export"
)

type exportComplaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error)
}

type exportAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ExportService renders the admin complaint report as CSV or PDF. Listing
// goes through the same repository the API uses, so the report always
// matches what the admin sees on screen.
type ExportService struct {
	complaints exportComplaintRepository
	audit      exportAuditRepository
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(complaints exportComplaintRepository, audit exportAuditRepository, pdfRowCap int, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		complaints: complaints,
		audit:      audit,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(pdfRowCap),
		validator:  validate,
		logger:     logger,
	}
}

const exportPageSize = 100

// Export renders the filtered complaint set. Admin only.
func (s *ExportService) Export(ctx context.Context, actor Actor, req dto.ExportRequest) (*dto.ExportResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	filter := models.ComplaintFilter{CategoryID: req.CategoryID, PageSize: exportPageSize}
	if req.Status != "" {
		status := models.ComplaintStatus(req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	if req.FromDate != "" {
		from, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from_date")
		}
		filter.DateFrom = &from
	}
	if req.ToDate != "" {
		to, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to_date")
		}
		// Inclusive upper bound: everything created before the next day.
		end := to.Add(24 * time.Hour)
		filter.DateTo = &end
	}

	dataset, err := s.collect(ctx, filter)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	var result dto.ExportResult
	switch dto.ExportFormat(req.Format) {
	case dto.ExportFormatCSV:
		data, err := s.csv.Render(*dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
		}
		result = dto.ExportResult{
			Filename:    fmt.Sprintf("complaints-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}
	case dto.ExportFormatPDF:
		data, err := s.pdf.Render(*dataset, "Complaint Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
		}
		result = dto.ExportResult{
			Filename:    fmt.Sprintf("complaints-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export format")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &actor.ID,
		Action:    models.AuditActionExport,
		Resource:  "complaints",
		NewValues: []byte(fmt.Sprintf(`{"format":%q,"rows":%d}`, req.Format, len(dataset.Rows))),
	}); err != nil {
		s.logger.Warn("failed to record export audit log", zap.Error(err))
	}

	return &result, nil
}

// collect pages through the full filtered complaint set and flattens it
// into an exportable dataset.
func (s *ExportService) collect(ctx context.Context, filter models.ComplaintFilter) (*export.Dataset, error) {
	dataset := &export.Dataset{
		Headers: []string{"Ticket", "Title", "Category", "Status", "Priority", "Submitted By", "Assigned To", "Created", "Resolved"},
	}

	for page := 1; ; page++ {
		filter.Page = page
		complaints, total, err := s.complaints.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect complaints")
		}
		for _, c := range complaints {
			row := map[string]string{
				"Ticket":       c.ComplaintNo,
				"Title":        c.Title,
				"Status":       string(c.Status),
				"Priority":     string(c.Priority),
				"Submitted By": c.UserName,
				"Created":      c.CreatedAt.Format("2006-01-02 15:04"),
			}
			if c.CategoryName != nil {
				row["Category"] = *c.CategoryName
			}
			if c.AssignedToName != nil {
				row["Assigned To"] = *c.AssignedToName
			}
			if c.ResolvedAt != nil {
				row["Resolved"] = c.ResolvedAt.Format("2006-01-02 15:04")
			}
			dataset.Rows = append(dataset.Rows, row)
		}
		if len(dataset.Rows) >= total || len(complaints) == 0 {
			break
		}
	}

	return dataset, nil
}
